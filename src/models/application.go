package models

import (
	"cwms/src/types"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Cohort struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `json:"name,omitempty"`
	Slug      string    `gorm:"uniqueIndex" json:"slug,omitempty"`
	Capacity  uint      `json:"capacity,omitempty"`
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`

	Applications []Application `json:"applications,omitempty"`

	types.Timestamps
}

type Application struct {
	ID       uint `gorm:"primarykey" json:"id"`
	CohortID uint `gorm:"index" json:"cohort_id,omitempty"`

	StartupName  string           `json:"startup_name,omitempty"`
	Industry     string           `json:"industry,omitempty"`
	Pitch        string           `json:"pitch,omitempty"`
	WebsiteURL   string           `json:"website_url,omitempty"`
	ContactEmail string           `json:"contact_email,omitempty"`
	Founders     types.JSONBArray `gorm:"type:jsonb" json:"founders,omitempty"`

	Status types.ApplicationStatus `gorm:"default:'submitted'" json:"status,omitempty"`

	// EvaluationScores maps criterion name to a 1-10 score. OverallScore is
	// the mean of the criteria scaled to 0-100, recomputed whenever the map
	// changes.
	EvaluationScores types.JSONB `gorm:"type:jsonb" json:"evaluation_scores,omitempty"`
	OverallScore     *float64    `json:"overall_score,omitempty"`

	InterviewAt       *time.Time `json:"interview_at,omitempty"`
	InterviewLocation *string    `json:"interview_location,omitempty"`

	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	DecisionReason *string    `json:"decision_reason,omitempty"`
	DecidedBy      *string    `json:"decided_by,omitempty"`

	Cohort  Cohort                     `json:"-"`
	History []ApplicationStatusHistory `json:"history,omitempty"`

	types.Timestamps
}

type ApplicationStatusHistory struct {
	ID            uuid.UUID               `gorm:"primarykey;type:uuid" json:"id"`
	ApplicationID uint                    `gorm:"index" json:"application_id,omitempty"`
	OldStatus     types.ApplicationStatus `json:"old_status,omitempty"`
	NewStatus     types.ApplicationStatus `json:"new_status,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
	Actor         string                  `json:"actor,omitempty"`
	Metadata      types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time               `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
}

func (h *ApplicationStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
