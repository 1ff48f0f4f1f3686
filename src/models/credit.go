package models

import (
	"cwms/src/types"
	"time"
)

// BookingCredit is one credit pool for a member, resource type and billing
// period. A member may hold several concurrently (one per renewal period);
// each expires with its own period. 1 credit = 1 unit of the price unit the
// booking was charged in.
type BookingCredit struct {
	ID           uint               `gorm:"primarykey" json:"id"`
	MemberID     uint               `gorm:"index" json:"member_id,omitempty"`
	ResourceType types.ResourceType `gorm:"index" json:"resource_type,omitempty"`
	PeriodStart  time.Time          `json:"period_start,omitempty"`
	PeriodEnd    time.Time          `json:"period_end,omitempty"`
	Total        float64            `json:"total"`
	Used         float64            `json:"used"`

	Member Member `json:"-"`

	types.Timestamps
}

func (c *BookingCredit) Remaining() float64 {
	return c.Total - c.Used
}

func (c *BookingCredit) ActiveAt(now time.Time) bool {
	return !now.Before(c.PeriodStart) && now.Before(c.PeriodEnd)
}
