package models

import (
	"cwms/src/types"
	"time"
)

type Booking struct {
	ID         uint `gorm:"primarykey" json:"id"`
	ResourceID uint `gorm:"index" json:"resource_id,omitempty"`

	// Owner pair: one of member|user, resolved via services.ResolveOwner.
	OwnerType types.OwnerKind `gorm:"index:idx_booking_owner" json:"owner_type,omitempty"`
	OwnerID   uint            `gorm:"index:idx_booking_owner" json:"owner_id,omitempty"`

	StartTime time.Time           `gorm:"index" json:"start_time,omitempty"`
	EndTime   time.Time           `gorm:"index" json:"end_time,omitempty"`
	Status    types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`

	UnitPrice      float64             `json:"unit_price"`
	PriceUnit      types.PriceUnit     `json:"price_unit,omitempty"`
	Quantity       float64             `json:"quantity"`
	DiscountAmount float64             `json:"discount_amount"`
	CreditsUsed    float64             `json:"credits_used"`
	TotalPrice     float64             `json:"total_price"`
	PaymentStatus  types.PaymentStatus `gorm:"default:'unpaid'" json:"payment_status,omitempty"`
	Currency       string              `json:"currency,omitempty"`

	CancelReason *string `json:"cancel_reason,omitempty"`

	Resource SpaceResource `gorm:"foreignKey:ResourceID" json:"resource,omitempty"`

	types.Timestamps
}

// CanModify reports whether the booking may still be rescheduled: only
// pending or confirmed bookings that have not started yet.
func (b *Booking) CanModify(now time.Time) bool {
	if b.Status != types.BOOKING_PENDING && b.Status != types.BOOKING_CONFIRMED {
		return false
	}
	return now.Before(b.StartTime)
}

// CanCancel reports whether the booking may transition to cancelled.
func (b *Booking) CanCancel() bool {
	return b.Status == types.BOOKING_PENDING || b.Status == types.BOOKING_CONFIRMED
}
