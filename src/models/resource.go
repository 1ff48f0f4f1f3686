package models

import "cwms/src/types"

// SpaceResource is a bookable unit: meeting room, hot desk or private office.
// OpensAt/ClosesAt are minutes from midnight; nil means no operating-hours
// window is enforced.
type SpaceResource struct {
	ID       uint               `gorm:"primarykey" json:"id"`
	Name     string             `json:"name,omitempty"`
	Slug     string             `gorm:"uniqueIndex" json:"slug,omitempty"`
	Type     types.ResourceType `json:"type,omitempty"`
	Capacity uint               `json:"capacity,omitempty"`

	OpensAt  *uint `json:"opens_at,omitempty"`
	ClosesAt *uint `json:"closes_at,omitempty"`

	// Durations in minutes. MaxDuration 0 means unbounded.
	MinDuration    uint `json:"min_duration,omitempty"`
	MaxDuration    uint `json:"max_duration,omitempty"`
	BufferDuration uint `json:"buffer_duration,omitempty"`

	HourlyRate  *float64 `json:"hourly_rate,omitempty"`
	DailyRate   *float64 `json:"daily_rate,omitempty"`
	WeeklyRate  *float64 `json:"weekly_rate,omitempty"`
	MonthlyRate *float64 `json:"monthly_rate,omitempty"`

	// PlanDiscounts maps a plan id (as string key) to a discount percent.
	PlanDiscounts types.JSONB `gorm:"type:jsonb" json:"plan_discounts,omitempty"`

	Currency         string `json:"currency,omitempty"`
	Active           bool   `gorm:"default:true" json:"active"`
	RequiresApproval bool   `json:"requires_approval"`

	Bookings []Booking `gorm:"foreignKey:ResourceID" json:"bookings,omitempty"`

	types.Timestamps
}
