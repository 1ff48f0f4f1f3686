package services

import (
	"cwms/src/config"
	"cwms/src/models"
	"cwms/src/types"
	"time"

	"gorm.io/gorm"
)

// ApplicationPipeline drives incubator applications through the review
// funnel. Moves are forward-only along submitted -> screening ->
// interview_scheduled -> interviewed -> accepted|rejected; screening may
// skip straight to interviewed when no slot was booked through the system,
// and rejection is reachable from every non-terminal stage.
type ApplicationPipeline struct {
	db  *gorm.DB
	cfg *config.AppConfig
}

func NewApplicationPipeline(db *gorm.DB, cfg *config.AppConfig) *ApplicationPipeline {
	return &ApplicationPipeline{db: db, cfg: cfg}
}

var applicationTransitions = map[types.ApplicationStatus][]types.ApplicationStatus{
	types.APPLICATION_SUBMITTED:           {types.APPLICATION_SCREENING, types.APPLICATION_REJECTED},
	types.APPLICATION_SCREENING:           {types.APPLICATION_INTERVIEW_SCHEDULED, types.APPLICATION_INTERVIEWED, types.APPLICATION_REJECTED},
	types.APPLICATION_INTERVIEW_SCHEDULED: {types.APPLICATION_INTERVIEWED, types.APPLICATION_REJECTED},
	types.APPLICATION_INTERVIEWED:         {types.APPLICATION_ACCEPTED, types.APPLICATION_REJECTED},
}

func canTransitionTo(from, to types.ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Submit files a new application against a cohort. The cohort must exist
// and still be open for intake.
func (p *ApplicationPipeline) Submit(body *types.CreateApplicationRequestBody) (*models.Application, []DomainEvent, error) {
	var app models.Application
	var events []DomainEvent
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var cohort models.Cohort
		if err := tx.Where(&models.Cohort{ID: body.CohortID}).First(&cohort).Error; err != nil {
			return err
		}
		if time.Now().After(cohort.StartDate) {
			return NewValidationError("cohort", "cohort intake is closed")
		}
		app = models.Application{
			CohortID:     cohort.ID,
			StartupName:  body.StartupName,
			Industry:     body.Industry,
			Pitch:        body.Pitch,
			WebsiteURL:   body.WebsiteURL,
			ContactEmail: body.ContactEmail,
			Founders:     body.Founders,
			Status:       types.APPLICATION_SUBMITTED,
		}
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		history := models.ApplicationStatusHistory{
			ApplicationID: app.ID,
			NewStatus:     types.APPLICATION_SUBMITTED,
			Reason:        "submitted",
			Actor:         body.ContactEmail,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_APPLICATION_SUBMITTED, types.JSONB{
			"application_id": app.ID,
			"cohort_id":      cohort.ID,
			"startup_name":   app.StartupName,
		}))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &app, events, nil
}

// Transition moves an application to the target status, enforcing the
// allow-list and stamping decision fields on the terminal moves. Accepted
// and rejected both require a reason.
func (p *ApplicationPipeline) Transition(applicationID uint, target types.ApplicationStatus, reason, actor string, metadata types.JSONB) ([]DomainEvent, error) {
	terminal := target == types.APPLICATION_ACCEPTED || target == types.APPLICATION_REJECTED
	if terminal && reason == "" {
		return nil, NewValidationError("reason", "required for a decision")
	}
	var events []DomainEvent
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where(&models.Application{ID: applicationID}).First(&app).Error; err != nil {
			return err
		}
		if !canTransitionTo(app.Status, target) {
			return &StateConflictError{
				Entity:  "application",
				Current: string(app.Status),
				Message: "cannot transition from " + string(app.Status) + " to " + string(target),
			}
		}
		updates := map[string]any{"status": target}
		if terminal {
			now := time.Now()
			updates["decided_at"] = now
			updates["decision_reason"] = reason
			updates["decided_by"] = actor
		}
		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Updates(updates).Error; err != nil {
			return err
		}
		history := models.ApplicationStatusHistory{
			ApplicationID: app.ID,
			OldStatus:     app.Status,
			NewStatus:     target,
			Reason:        reason,
			Actor:         actor,
			Metadata:      metadata,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_APPLICATION_TRANSITION, types.JSONB{
			"application_id": app.ID,
			"old_status":     string(app.Status),
			"new_status":     string(target),
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ScheduleInterview stamps the interview slot while moving screening ->
// interview_scheduled.
func (p *ApplicationPipeline) ScheduleInterview(applicationID uint, at time.Time, location, actor string) ([]DomainEvent, error) {
	if !at.After(time.Now()) {
		return nil, NewValidationError("interview_at", "must be in the future")
	}
	var events []DomainEvent
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where(&models.Application{ID: applicationID}).First(&app).Error; err != nil {
			return err
		}
		if !canTransitionTo(app.Status, types.APPLICATION_INTERVIEW_SCHEDULED) {
			return &StateConflictError{
				Entity:   "application",
				Current:  string(app.Status),
				Required: string(types.APPLICATION_SCREENING),
			}
		}
		updates := map[string]any{
			"status":             types.APPLICATION_INTERVIEW_SCHEDULED,
			"interview_at":       at,
			"interview_location": location,
		}
		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Updates(updates).Error; err != nil {
			return err
		}
		history := models.ApplicationStatusHistory{
			ApplicationID: app.ID,
			OldStatus:     app.Status,
			NewStatus:     types.APPLICATION_INTERVIEW_SCHEDULED,
			Reason:        "interview scheduled",
			Actor:         actor,
			Metadata:      types.JSONB{"interview_at": at, "location": location},
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_APPLICATION_TRANSITION, types.JSONB{
			"application_id": app.ID,
			"old_status":     string(app.Status),
			"new_status":     string(types.APPLICATION_INTERVIEW_SCHEDULED),
			"interview_at":   at,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// RecordScores merges the submitted criterion scores into the evaluation map
// and recomputes the overall score. Each score must sit in [1,10]; the
// overall is the mean scaled to a 0-100 range.
func (p *ApplicationPipeline) RecordScores(applicationID uint, scores map[string]float64, actor string) (*models.Application, error) {
	if len(scores) == 0 {
		return nil, NewValidationError("scores", "at least one criterion required")
	}
	for name, score := range scores {
		if score < 1 || score > 10 {
			return nil, NewValidationError("scores", "score for "+name+" must be between 1 and 10")
		}
	}
	var app models.Application
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.Application{ID: applicationID}).First(&app).Error; err != nil {
			return err
		}
		if app.Status == types.APPLICATION_ACCEPTED || app.Status == types.APPLICATION_REJECTED {
			return &StateConflictError{
				Entity:  "application",
				Current: string(app.Status),
				Message: "cannot score a decided application",
			}
		}
		merged := types.JSONB{}
		for k, v := range app.EvaluationScores {
			merged[k] = v
		}
		for k, v := range scores {
			merged[k] = v
		}
		var sum float64
		var count float64
		for _, raw := range merged {
			switch v := raw.(type) {
			case float64:
				sum += v
				count++
			case int:
				sum += float64(v)
				count++
			}
		}
		overall := sum / count * 10
		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Updates(map[string]any{
			"evaluation_scores": merged,
			"overall_score":     overall,
		}).Error; err != nil {
			return err
		}
		app.EvaluationScores = merged
		app.OverallScore = &overall
		history := models.ApplicationStatusHistory{
			ApplicationID: app.ID,
			OldStatus:     app.Status,
			NewStatus:     app.Status,
			Reason:        "scores recorded",
			Actor:         actor,
			Metadata:      types.JSONB{"overall_score": overall},
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Accept decides the application and provisions the member record so the
// startup's team can hold a subscription.
func (p *ApplicationPipeline) Accept(applicationID uint, reason, actor string) (*models.Member, []DomainEvent, error) {
	if reason == "" {
		return nil, nil, NewValidationError("reason", "required for a decision")
	}
	var member models.Member
	var events []DomainEvent
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var app models.Application
		if err := tx.Where(&models.Application{ID: applicationID}).First(&app).Error; err != nil {
			return err
		}
		if !canTransitionTo(app.Status, types.APPLICATION_ACCEPTED) {
			return &StateConflictError{
				Entity:   "application",
				Current:  string(app.Status),
				Required: string(types.APPLICATION_INTERVIEWED),
			}
		}
		now := time.Now()
		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).Updates(map[string]any{
			"status":          types.APPLICATION_ACCEPTED,
			"decided_at":      now,
			"decision_reason": reason,
			"decided_by":      actor,
		}).Error; err != nil {
			return err
		}
		history := models.ApplicationStatusHistory{
			ApplicationID: app.ID,
			OldStatus:     app.Status,
			NewStatus:     types.APPLICATION_ACCEPTED,
			Reason:        reason,
			Actor:         actor,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		member = models.Member{
			Name:  app.StartupName,
			Email: app.ContactEmail,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		events = append(events, NewDomainEvent(EVENT_APPLICATION_TRANSITION, types.JSONB{
			"application_id": app.ID,
			"old_status":     string(app.Status),
			"new_status":     string(types.APPLICATION_ACCEPTED),
			"member_id":      member.ID,
		}))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &member, events, nil
}
