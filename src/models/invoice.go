package models

import (
	"cwms/src/types"
	"time"
)

type Invoice struct {
	ID uint `gorm:"primarykey" json:"id"`

	// Billable pair, same closed union as bookings.
	OwnerType types.OwnerKind `gorm:"index:idx_invoice_owner" json:"owner_type,omitempty"`
	OwnerID   uint            `gorm:"index:idx_invoice_owner" json:"owner_id,omitempty"`

	Number   *string             `gorm:"uniqueIndex" json:"number,omitempty"`
	Status   types.InvoiceStatus `gorm:"default:'draft'" json:"status,omitempty"`
	Currency string              `json:"currency,omitempty"`

	TaxRate  float64 `json:"tax_rate"`
	Discount float64 `json:"discount"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`

	DueDate  *time.Time `json:"due_date,omitempty"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
	VoidedAt *time.Time `json:"voided_at,omitempty"`

	PaymentReference *string `json:"payment_reference,omitempty"`
	VoidReason       *string `json:"void_reason,omitempty"`

	Items []InvoiceItem `json:"items,omitempty"`

	types.Timestamps
}

func (i *Invoice) IsDraft() bool {
	return i.Status == types.INVOICE_DRAFT
}

func (i *Invoice) CanBePaid() bool {
	return i.Status == types.INVOICE_SENT || i.Status == types.INVOICE_OVERDUE
}

func (i *Invoice) CanBeVoided() bool {
	return i.Status == types.INVOICE_DRAFT || i.Status == types.INVOICE_SENT || i.Status == types.INVOICE_OVERDUE
}

type InvoiceItem struct {
	ID        uint `gorm:"primarykey" json:"id"`
	InvoiceID uint `gorm:"index" json:"invoice_id,omitempty"`

	// Origin optionally points at the booking or subscription that produced
	// the charge.
	OriginType *string `json:"origin_type,omitempty"`
	OriginID   *uint   `json:"origin_id,omitempty"`

	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	Total       float64 `json:"total"`

	types.Timestamps
}

// InvoiceSequence holds the per-year counter behind invoice numbering. The
// row is locked FOR UPDATE while the next number is taken, so numbering never
// depends on parsing the previous invoice's number.
type InvoiceSequence struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Year       int    `gorm:"uniqueIndex:idx_invoice_seq_year_prefix" json:"year"`
	Prefix     string `gorm:"uniqueIndex:idx_invoice_seq_year_prefix" json:"prefix"`
	LastNumber uint   `json:"last_number"`

	types.Timestamps
}
