package models

import (
	"cwms/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Subscription struct {
	ID              uint                     `gorm:"primarykey" json:"id"`
	MemberID        uint                     `json:"member_id,omitempty"`
	PlanID          uint                     `json:"plan_id,omitempty"`
	Status          types.SubscriptionStatus `gorm:"default:'pending'" json:"status,omitempty"`
	StartDate       *time.Time               `json:"start_date,omitempty"`
	EndDate         *time.Time               `json:"end_date,omitempty"`
	NextBillingDate *time.Time               `json:"next_billing_date,omitempty"`
	ActivatedAt     *time.Time               `json:"activated_at,omitempty"`
	AutoRenew       bool                     `json:"auto_renew"`
	GraceDays       uint                     `json:"grace_days,omitempty"`
	// Plan price captured at subscribe time so later plan edits never
	// reprice an existing subscription.
	PriceSnapshot    float64 `json:"price_snapshot"`
	Currency         string  `json:"currency,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`

	Member  Member  `json:"-"`
	Plan    Plan    `json:"plan,omitempty"`
	History []SubscriptionHistory `json:"history,omitempty"`

	types.Timestamps
}

// IsTerminal reports whether no further transition may leave this status.
func (s *Subscription) IsTerminal() bool {
	return s.Status == types.SUBSCRIPTION_EXPIRED || s.Status == types.SUBSCRIPTION_CANCELED
}

// SubscriptionHistory is append-only. Rows are written in the same
// transaction as the status change and never updated or deleted.
type SubscriptionHistory struct {
	ID             uuid.UUID                `gorm:"primarykey;type:uuid" json:"id"`
	SubscriptionID uint                     `gorm:"index" json:"subscription_id,omitempty"`
	OldStatus      types.SubscriptionStatus `json:"old_status,omitempty"`
	NewStatus      types.SubscriptionStatus `json:"new_status,omitempty"`
	Reason         string                   `json:"reason,omitempty"`
	Actor          string                   `json:"actor,omitempty"`
	Metadata       types.JSONB              `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time                `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
}

func (h *SubscriptionHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
