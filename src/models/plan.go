package models

import "cwms/src/types"

type Plan struct {
	ID           uint        `gorm:"primarykey" json:"id"`
	Name         string      `json:"name,omitempty"`
	Slug         string      `gorm:"uniqueIndex" json:"slug,omitempty"`
	Price        float64     `json:"price"`
	Currency     string      `json:"currency,omitempty"`
	DurationDays uint        `json:"duration_days,omitempty"`
	GraceDays    uint        `json:"grace_days,omitempty"`
	Features     types.JSONB `gorm:"type:jsonb" json:"features,omitempty"`
	Active       bool        `gorm:"default:true" json:"active"`

	types.Timestamps
}
