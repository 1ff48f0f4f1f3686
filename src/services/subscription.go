package services

import (
	"cwms/src/config"
	"cwms/src/models"
	"cwms/src/types"
	"log"
	"time"

	"gorm.io/gorm"
)

// SubscriptionService owns the membership subscription state machine:
// pending, active, expiring, grace_period, expired, cancelled, suspended.
// Every transition writes a SubscriptionHistory row in the same transaction
// as the status update.
type SubscriptionService struct {
	db  *gorm.DB
	cfg *config.AppConfig
}

func NewSubscriptionService(db *gorm.DB, cfg *config.AppConfig) *SubscriptionService {
	return &SubscriptionService{db: db, cfg: cfg}
}

// transition updates the status and appends the audit row. Callers have
// already validated the move.
func (s *SubscriptionService) transition(tx *gorm.DB, sub *models.Subscription, newStatus types.SubscriptionStatus, reason, actor string, metadata types.JSONB, extraUpdates map[string]any) error {
	updates := map[string]any{"status": newStatus}
	for k, v := range extraUpdates {
		updates[k] = v
	}
	if err := tx.Model(&models.Subscription{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
		return err
	}
	history := models.SubscriptionHistory{
		SubscriptionID: sub.ID,
		OldStatus:      sub.Status,
		NewStatus:      newStatus,
		Reason:         reason,
		Actor:          actor,
		Metadata:       metadata,
	}
	if err := tx.Create(&history).Error; err != nil {
		return err
	}
	sub.Status = newStatus
	return nil
}

// Create opens a pending subscription on the plan, snapshotting its price.
// A member holds at most one non-terminal subscription at a time.
func (s *SubscriptionService) Create(memberID, planID uint, autoRenew bool, actor string) (*models.Subscription, []DomainEvent, error) {
	var sub models.Subscription
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var plan models.Plan
		if err := tx.Where(&models.Plan{ID: planID}).First(&plan).Error; err != nil {
			return err
		}
		if !plan.Active {
			return NewValidationError("plan", "plan is not active")
		}
		var existing int64
		if err := tx.
			Model(&models.Subscription{}).
			Where("member_id = ?", memberID).
			Where("status IN (?)", []types.SubscriptionStatus{
				types.SUBSCRIPTION_PENDING,
				types.SUBSCRIPTION_ACTIVE,
				types.SUBSCRIPTION_EXPIRING,
				types.SUBSCRIPTION_GRACE_PERIOD,
				types.SUBSCRIPTION_SUSPENDED,
			}).
			Count(&existing).
			Error; err != nil {
			return err
		}
		if existing > 0 {
			return &StateConflictError{
				Entity:  "subscription",
				Message: "member already has a subscription that is not expired or cancelled",
			}
		}
		graceDays := plan.GraceDays
		if graceDays == 0 {
			graceDays = s.cfg.DefaultGraceDays
		}
		sub = models.Subscription{
			MemberID:      memberID,
			PlanID:        plan.ID,
			Status:        types.SUBSCRIPTION_PENDING,
			AutoRenew:     autoRenew,
			GraceDays:     graceDays,
			PriceSnapshot: plan.Price,
			Currency:      plan.Currency,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		history := models.SubscriptionHistory{
			SubscriptionID: sub.ID,
			NewStatus:      types.SUBSCRIPTION_PENDING,
			Reason:         "created",
			Actor:          actor,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_CREATED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       memberID,
			"plan_id":         plan.ID,
		}))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &sub, events, nil
}

// Activate moves pending -> active, stamps activation and billing dates and
// records the payment reference.
func (s *SubscriptionService) Activate(subscriptionID uint, paymentReference, actor string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where(&models.Subscription{ID: subscriptionID}).Preload("Plan").First(&sub).Error; err != nil {
			return err
		}
		if sub.Status != types.SUBSCRIPTION_PENDING {
			return &StateConflictError{
				Entity:   "subscription",
				Current:  string(sub.Status),
				Required: string(types.SUBSCRIPTION_PENDING),
			}
		}
		now := time.Now()
		end := now.AddDate(0, 0, int(sub.Plan.DurationDays))
		if err := s.transition(tx, &sub, types.SUBSCRIPTION_ACTIVE, "payment received", actor,
			types.JSONB{"payment_reference": paymentReference},
			map[string]any{
				"activated_at":      now,
				"start_date":        now,
				"end_date":          end,
				"next_billing_date": end,
				"payment_reference": paymentReference,
			}); err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_ACTIVATED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
			"end_date":        end,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Renew extends an active or expiring subscription by one plan duration and
// resets the billing date.
func (s *SubscriptionService) Renew(subscriptionID uint, paymentReference, actor string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where(&models.Subscription{ID: subscriptionID}).Preload("Plan").First(&sub).Error; err != nil {
			return err
		}
		if sub.Status != types.SUBSCRIPTION_ACTIVE && sub.Status != types.SUBSCRIPTION_EXPIRING {
			return &StateConflictError{
				Entity:   "subscription",
				Current:  string(sub.Status),
				Required: "active or expiring",
			}
		}
		base := time.Now()
		if sub.EndDate != nil && sub.EndDate.After(base) {
			base = *sub.EndDate
		}
		newEnd := base.AddDate(0, 0, int(sub.Plan.DurationDays))
		if err := s.transition(tx, &sub, types.SUBSCRIPTION_ACTIVE, "renewed", actor,
			types.JSONB{"payment_reference": paymentReference},
			map[string]any{
				"end_date":          newEnd,
				"next_billing_date": newEnd,
				"payment_reference": paymentReference,
			}); err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_RENEWED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
			"end_date":        newEnd,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkAsExpiring flags an active subscription approaching its end date. The
// move is informational; the subscription stays usable.
func (s *SubscriptionService) MarkAsExpiring(subscriptionID uint, actor string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where(&models.Subscription{ID: subscriptionID}).First(&sub).Error; err != nil {
			return err
		}
		if sub.Status != types.SUBSCRIPTION_ACTIVE {
			return &StateConflictError{
				Entity:   "subscription",
				Current:  string(sub.Status),
				Required: string(types.SUBSCRIPTION_ACTIVE),
			}
		}
		daysRemaining := 0
		if sub.EndDate != nil {
			daysRemaining = int(time.Until(*sub.EndDate).Hours() / 24)
		}
		if err := s.transition(tx, &sub, types.SUBSCRIPTION_EXPIRING, "approaching end date", actor,
			types.JSONB{"days_remaining": daysRemaining}, nil); err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_EXPIRING, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
			"days_remaining":  daysRemaining,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// MarkAsExpired handles a passed end date: into grace_period when the
// subscription carries grace days, straight to expired otherwise. The
// expired event fires only on the terminal path.
func (s *SubscriptionService) MarkAsExpired(subscriptionID uint, actor string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where(&models.Subscription{ID: subscriptionID}).First(&sub).Error; err != nil {
			return err
		}
		if sub.Status != types.SUBSCRIPTION_ACTIVE && sub.Status != types.SUBSCRIPTION_EXPIRING {
			return &StateConflictError{
				Entity:   "subscription",
				Current:  string(sub.Status),
				Required: "active or expiring",
			}
		}
		if sub.GraceDays > 0 {
			return s.transition(tx, &sub, types.SUBSCRIPTION_GRACE_PERIOD, "end date passed", actor,
				types.JSONB{"grace_days": sub.GraceDays}, nil)
		}
		if err := s.transition(tx, &sub, types.SUBSCRIPTION_EXPIRED, "end date passed", actor, nil, nil); err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_EXPIRED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Cancel ends any non-terminal subscription and disables auto-renew. A
// reason is required.
func (s *SubscriptionService) Cancel(subscriptionID uint, reason, actor string) ([]DomainEvent, error) {
	if reason == "" {
		return nil, NewValidationError("reason", "required")
	}
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where(&models.Subscription{ID: subscriptionID}).First(&sub).Error; err != nil {
			return err
		}
		if sub.IsTerminal() {
			return &StateConflictError{
				Entity:   "subscription",
				Current:  string(sub.Status),
				Required: "any non-terminal state",
			}
		}
		if err := s.transition(tx, &sub, types.SUBSCRIPTION_CANCELED, reason, actor, nil,
			map[string]any{"auto_renew": false}); err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_CANCELED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
			"reason":          reason,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Suspend is the admin-only hold: any non-terminal state moves to suspended
// and auto-renew turns off.
func (s *SubscriptionService) Suspend(subscriptionID uint, reason, actor string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where(&models.Subscription{ID: subscriptionID}).First(&sub).Error; err != nil {
			return err
		}
		if sub.IsTerminal() {
			return &StateConflictError{
				Entity:   "subscription",
				Current:  string(sub.Status),
				Required: "any non-terminal state",
			}
		}
		if err := s.transition(tx, &sub, types.SUBSCRIPTION_SUSPENDED, reason, actor, nil,
			map[string]any{"auto_renew": false}); err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_SUBSCRIPTION_SUSPENDED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ProcessExpiringSubscriptions scans active subscriptions whose end date
// falls inside the window and flags each as expiring. One record's failure
// is logged and does not abort the sweep.
func (s *SubscriptionService) ProcessExpiringSubscriptions(daysWindow uint) []DomainEvent {
	if daysWindow == 0 {
		daysWindow = s.cfg.ExpiringWindowDays
	}
	cutoff := time.Now().AddDate(0, 0, int(daysWindow))
	var ids []uint
	if err := s.db.
		Model(&models.Subscription{}).
		Where("status = ?", types.SUBSCRIPTION_ACTIVE).
		Where("end_date IS NOT NULL AND end_date <= ? AND end_date > ?", cutoff, time.Now()).
		Pluck("id", &ids).
		Error; err != nil {
		log.Printf("[subscriptions] Error scanning expiring subscriptions: %s\n", err.Error())
		return nil
	}
	var all []DomainEvent
	for _, id := range ids {
		events, err := s.MarkAsExpiring(id, "scheduler")
		if err != nil {
			log.Printf("[subscriptions] Error marking subscription [%d] expiring: %s\n", id, err.Error())
			continue
		}
		all = append(all, events...)
	}
	return all
}

// ProcessExpiredSubscriptions sweeps active/expiring subscriptions whose end
// date has passed.
func (s *SubscriptionService) ProcessExpiredSubscriptions() []DomainEvent {
	var ids []uint
	if err := s.db.
		Model(&models.Subscription{}).
		Where("status IN (?)", []types.SubscriptionStatus{types.SUBSCRIPTION_ACTIVE, types.SUBSCRIPTION_EXPIRING}).
		Where("end_date IS NOT NULL AND end_date < ?", time.Now()).
		Pluck("id", &ids).
		Error; err != nil {
		log.Printf("[subscriptions] Error scanning expired subscriptions: %s\n", err.Error())
		return nil
	}
	var all []DomainEvent
	for _, id := range ids {
		events, err := s.MarkAsExpired(id, "scheduler")
		if err != nil {
			log.Printf("[subscriptions] Error expiring subscription [%d]: %s\n", id, err.Error())
			continue
		}
		all = append(all, events...)
	}
	return all
}

// ProcessGracePeriodExpiration finalizes grace_period subscriptions whose
// end date plus grace days has passed. This is the only way a grace-period
// subscription reaches expired, so the expired event fires exactly once.
func (s *SubscriptionService) ProcessGracePeriodExpiration() []DomainEvent {
	var subs []models.Subscription
	if err := s.db.
		Model(&models.Subscription{}).
		Where("status = ?", types.SUBSCRIPTION_GRACE_PERIOD).
		Where("end_date IS NOT NULL").
		Find(&subs).
		Error; err != nil {
		log.Printf("[subscriptions] Error scanning grace-period subscriptions: %s\n", err.Error())
		return nil
	}
	now := time.Now()
	var all []DomainEvent
	for i := range subs {
		sub := subs[i]
		deadline := sub.EndDate.AddDate(0, 0, int(sub.GraceDays))
		if !now.After(deadline) {
			continue
		}
		var finalized bool
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var fresh models.Subscription
			if err := tx.Where(&models.Subscription{ID: sub.ID}).First(&fresh).Error; err != nil {
				return err
			}
			if fresh.Status != types.SUBSCRIPTION_GRACE_PERIOD {
				// Another path already moved it; nothing to finalize.
				return nil
			}
			if err := s.transition(tx, &fresh, types.SUBSCRIPTION_EXPIRED, "grace period ended", "scheduler", nil, nil); err != nil {
				return err
			}
			finalized = true
			return nil
		})
		if err != nil {
			log.Printf("[subscriptions] Error finalizing grace period for [%d]: %s\n", sub.ID, err.Error())
			continue
		}
		if !finalized {
			continue
		}
		all = append(all, NewDomainEvent(EVENT_SUBSCRIPTION_EXPIRED, types.JSONB{
			"subscription_id": sub.ID,
			"member_id":       sub.MemberID,
		}))
	}
	return all
}
