package services

import (
	"cwms/src/config"
	"cwms/src/models"
	"cwms/src/types"
	"log"
	"time"

	"gorm.io/gorm"
)

// BookingService orchestrates the booking state machine:
// pending -> confirmed -> completed, with cancel reachable from pending and
// confirmed. Availability check, pricing, the booking row and any ledger
// moves share one transaction; a failure leaves none of them applied.
type BookingService struct {
	db     *gorm.DB
	cfg    *config.AppConfig
	pricer *PricingCalculator
	ledger *CreditLedger
}

func NewBookingService(db *gorm.DB, cfg *config.AppConfig) *BookingService {
	ledger := NewCreditLedger()
	return &BookingService{
		db:     db,
		cfg:    cfg,
		pricer: NewPricingCalculator(ledger),
		ledger: ledger,
	}
}

func (s *BookingService) Pricer() *PricingCalculator {
	return s.pricer
}

func (s *BookingService) Ledger() *CreditLedger {
	return s.ledger
}

// CreateBooking validates availability, prices the window and persists the
// booking. Credits are deducted in the same transaction when the owner is a
// member. The initial status is confirmed unless the resource requires
// approval.
func (s *BookingService) CreateBooking(resourceID uint, ownerRef types.OwnerRef, start, end time.Time) (*models.Booking, []DomainEvent, error) {
	var booking models.Booking
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var resource models.SpaceResource
		if err := tx.Where(&models.SpaceResource{ID: resourceID}).First(&resource).Error; err != nil {
			return err
		}
		owner, err := ResolveOwner(tx, ownerRef)
		if err != nil {
			return err
		}
		available, err := IsAvailable(tx, &resource, start, end, 0)
		if err != nil {
			return err
		}
		if !available {
			return &ResourceUnavailableError{ResourceID: resource.ID}
		}
		price, err := s.pricer.CalculatePrice(tx, &resource, start, end, owner.Member)
		if err != nil {
			return err
		}

		status := types.BOOKING_CONFIRMED
		if resource.RequiresApproval {
			status = types.BOOKING_PENDING
		}
		booking = models.Booking{
			ResourceID:     resource.ID,
			OwnerType:      ownerRef.Kind,
			OwnerID:        ownerRef.ID,
			StartTime:      start,
			EndTime:        end,
			Status:         status,
			UnitPrice:      price.UnitPrice,
			PriceUnit:      price.PriceUnit,
			Quantity:       price.Quantity,
			DiscountAmount: price.DiscountAmount,
			CreditsUsed:    price.CreditsUsed,
			TotalPrice:     price.TotalPrice,
			PaymentStatus:  types.PAYMENT_UNPAID,
			Currency:       resource.Currency,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if price.CreditsUsed > 0 && owner.Member != nil {
			if err := s.ledger.Deduct(tx, owner.Member.ID, resource.Type, price.CreditsUsed); err != nil {
				return err
			}
		}
		events = append(events, NewDomainEvent(EVENT_BOOKING_CREATED, types.JSONB{
			"booking_id":  booking.ID,
			"resource_id": resource.ID,
			"owner_type":  string(ownerRef.Kind),
			"owner_id":    ownerRef.ID,
			"status":      string(status),
			"total_price": booking.TotalPrice,
		}))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &booking, events, nil
}

// RescheduleBooking moves a not-yet-started pending or confirmed booking to
// a new window. Old credits are refunded in full, then the new price's
// credits are deducted; a cheaper slot nets a partial refund only while the
// ledger's refund target period still exists.
func (s *BookingService) RescheduleBooking(bookingID uint, newStart, newEnd time.Time) (*models.Booking, []DomainEvent, error) {
	var booking models.Booking
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Booking{ID: bookingID}).Preload("Resource").First(&booking).Error; err != nil {
			return err
		}
		if !booking.CanModify(time.Now()) {
			return &StateConflictError{
				Entity:   "booking",
				Current:  string(booking.Status),
				Required: "pending or confirmed, not yet started",
			}
		}
		resource := booking.Resource
		available, err := IsAvailable(tx, &resource, newStart, newEnd, booking.ID)
		if err != nil {
			return err
		}
		if !available {
			return &ResourceUnavailableError{ResourceID: resource.ID}
		}

		var member *models.Member
		if booking.OwnerType == types.OWNER_MEMBER {
			owner, err := ResolveOwner(tx, types.OwnerRef{Kind: booking.OwnerType, ID: booking.OwnerID})
			if err != nil {
				return err
			}
			member = owner.Member
		}

		// Refund then re-deduct, not a diff. The refund lands first so the
		// new calculation sees the restored balance.
		if booking.CreditsUsed > 0 && member != nil {
			if err := s.ledger.Refund(tx, member.ID, resource.Type, booking.CreditsUsed); err != nil {
				return err
			}
		}
		price, err := s.pricer.CalculatePrice(tx, &resource, newStart, newEnd, member)
		if err != nil {
			return err
		}
		if price.CreditsUsed > 0 && member != nil {
			if err := s.ledger.Deduct(tx, member.ID, resource.Type, price.CreditsUsed); err != nil {
				return err
			}
		}

		updates := models.Booking{
			StartTime:      newStart,
			EndTime:        newEnd,
			UnitPrice:      price.UnitPrice,
			PriceUnit:      price.PriceUnit,
			Quantity:       price.Quantity,
			DiscountAmount: price.DiscountAmount,
			CreditsUsed:    price.CreditsUsed,
			TotalPrice:     price.TotalPrice,
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Select(
			"start_time", "end_time", "unit_price", "price_unit", "quantity",
			"discount_amount", "credits_used", "total_price",
		).Updates(&updates).Error; err != nil {
			return err
		}
		booking.StartTime = newStart
		booking.EndTime = newEnd
		booking.UnitPrice = price.UnitPrice
		booking.PriceUnit = price.PriceUnit
		booking.Quantity = price.Quantity
		booking.DiscountAmount = price.DiscountAmount
		booking.CreditsUsed = price.CreditsUsed
		booking.TotalPrice = price.TotalPrice

		events = append(events, NewDomainEvent(EVENT_BOOKING_RESCHEDULED, types.JSONB{
			"booking_id": booking.ID,
			"start":      newStart,
			"end":        newEnd,
			"total":      booking.TotalPrice,
		}))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &booking, events, nil
}

// CancelBooking refunds credits and transitions to cancelled. Re-cancelling
// an already-cancelled booking is a state conflict, not a no-op.
func (s *BookingService) CancelBooking(bookingID uint, reason string) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where(&models.Booking{ID: bookingID}).Preload("Resource").First(&booking).Error; err != nil {
			return err
		}
		if !booking.CanCancel() {
			return &StateConflictError{
				Entity:   "booking",
				Current:  string(booking.Status),
				Required: "pending or confirmed",
			}
		}
		if booking.CreditsUsed > 0 && booking.OwnerType == types.OWNER_MEMBER {
			if err := s.ledger.Refund(tx, booking.OwnerID, booking.Resource.Type, booking.CreditsUsed); err != nil {
				return err
			}
		}
		updates := map[string]any{"status": types.BOOKING_CANCELED}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(updates).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_BOOKING_CANCELED, types.JSONB{
			"booking_id": booking.ID,
			"reason":     reason,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ConfirmBooking approves a pending booking.
func (s *BookingService) ConfirmBooking(bookingID uint) ([]DomainEvent, error) {
	var events []DomainEvent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where(&models.Booking{ID: bookingID}).First(&booking).Error; err != nil {
			return err
		}
		if booking.Status != types.BOOKING_PENDING {
			return &StateConflictError{
				Entity:   "booking",
				Current:  string(booking.Status),
				Required: string(types.BOOKING_PENDING),
			}
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("status", types.BOOKING_CONFIRMED).
			Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_BOOKING_CONFIRMED, types.JSONB{
			"booking_id": booking.ID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// CompleteElapsedBookings flips confirmed bookings whose end time has passed
// to completed. Invoked by the scheduler; per-row failures are logged and do
// not abort the sweep.
func (s *BookingService) CompleteElapsedBookings() int {
	var ids []uint
	if err := s.db.
		Model(&models.Booking{}).
		Where("status = ?", types.BOOKING_CONFIRMED).
		Where("end_time < ?", time.Now()).
		Pluck("id", &ids).
		Error; err != nil {
		log.Printf("[bookings] Error scanning elapsed bookings: %s\n", err.Error())
		return 0
	}
	done := 0
	for _, id := range ids {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			return tx.
				Model(&models.Booking{}).
				Where("id = ? AND status = ?", id, types.BOOKING_CONFIRMED).
				Update("status", types.BOOKING_COMPLETED).
				Error
		})
		if err != nil {
			log.Printf("[bookings] Error completing booking [%d]: %s\n", id, err.Error())
			continue
		}
		done++
	}
	return done
}
