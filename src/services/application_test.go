package services

import (
	"cwms/src/models"
	"cwms/src/types"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type ApplicationTestSuite struct {
	suite.Suite
	DB       *gorm.DB
	Pipeline *ApplicationPipeline
	Cohort   *models.Cohort
}

func (s *ApplicationTestSuite) SetupTest() {
	s.DB = newTestDB(s.T())
	s.Pipeline = NewApplicationPipeline(s.DB, testConfig())

	cohort := models.Cohort{
		Name:      "Spring 2027",
		Slug:      "spring-2027",
		Capacity:  12,
		StartDate: time.Now().AddDate(0, 1, 0),
		EndDate:   time.Now().AddDate(0, 4, 0),
	}
	assert.Nil(s.T(), s.DB.Create(&cohort).Error)
	s.Cohort = &cohort
}

func (s *ApplicationTestSuite) submit() *models.Application {
	app, events, err := s.Pipeline.Submit(&types.CreateApplicationRequestBody{
		CohortID:     s.Cohort.ID,
		StartupName:  "Widgets Inc",
		Industry:     "hardware",
		Pitch:        "widgets but smaller",
		ContactEmail: "founders@widgets.test",
	})
	assert.Nil(s.T(), err)
	assert.Len(s.T(), events, 1)
	assert.Equal(s.T(), EVENT_APPLICATION_SUBMITTED, events[0].Name)
	return app
}

func (s *ApplicationTestSuite) advanceToInterviewed(app *models.Application) {
	_, err := s.Pipeline.Transition(app.ID, types.APPLICATION_SCREENING, "", "reviewer", nil)
	assert.Nil(s.T(), err)
	_, err = s.Pipeline.ScheduleInterview(app.ID, time.Now().AddDate(0, 0, 7), "HQ room 2", "reviewer")
	assert.Nil(s.T(), err)
	_, err = s.Pipeline.Transition(app.ID, types.APPLICATION_INTERVIEWED, "", "reviewer", nil)
	assert.Nil(s.T(), err)
}

func (s *ApplicationTestSuite) TestSubmitCreatesApplicationWithHistory() {
	app := s.submit()
	assert.Equal(s.T(), types.APPLICATION_SUBMITTED, app.Status)

	var count int64
	assert.Nil(s.T(), s.DB.Model(&models.ApplicationStatusHistory{}).Where("application_id = ?", app.ID).Count(&count).Error)
	assert.Equal(s.T(), int64(1), count)
}

func (s *ApplicationTestSuite) TestSubmitRejectsClosedCohort() {
	s.Cohort.StartDate = time.Now().AddDate(0, 0, -1)
	assert.Nil(s.T(), s.DB.Save(s.Cohort).Error)

	_, _, err := s.Pipeline.Submit(&types.CreateApplicationRequestBody{
		CohortID:     s.Cohort.ID,
		StartupName:  "Late Inc",
		ContactEmail: "late@example.com",
	})
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsValidation(err))
}

func (s *ApplicationTestSuite) TestSubmitRejectsUnknownCohort() {
	_, _, err := s.Pipeline.Submit(&types.CreateApplicationRequestBody{
		CohortID:     999,
		StartupName:  "Lost Inc",
		ContactEmail: "lost@example.com",
	})
	assert.Equal(s.T(), gorm.ErrRecordNotFound, err)
}

func (s *ApplicationTestSuite) TestTransitionsFollowAllowList() {
	app := s.submit()

	_, err := s.Pipeline.Transition(app.ID, types.APPLICATION_ACCEPTED, "great team", "reviewer", nil)
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsStateConflict(err))

	_, err = s.Pipeline.Transition(app.ID, types.APPLICATION_SCREENING, "", "reviewer", nil)
	assert.Nil(s.T(), err)

	var refreshed models.Application
	assert.Nil(s.T(), s.DB.First(&refreshed, app.ID).Error)
	assert.Equal(s.T(), types.APPLICATION_SCREENING, refreshed.Status)
}

func (s *ApplicationTestSuite) TestRejectionNeedsReasonAndStampsDecision() {
	app := s.submit()

	_, err := s.Pipeline.Transition(app.ID, types.APPLICATION_REJECTED, "", "reviewer", nil)
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsValidation(err))

	_, err = s.Pipeline.Transition(app.ID, types.APPLICATION_REJECTED, "not a fit", "reviewer", nil)
	assert.Nil(s.T(), err)

	var refreshed models.Application
	assert.Nil(s.T(), s.DB.First(&refreshed, app.ID).Error)
	assert.Equal(s.T(), types.APPLICATION_REJECTED, refreshed.Status)
	assert.NotNil(s.T(), refreshed.DecidedAt)
	assert.Equal(s.T(), "not a fit", *refreshed.DecisionReason)
	assert.Equal(s.T(), "reviewer", *refreshed.DecidedBy)
}

func (s *ApplicationTestSuite) TestScreeningCanSkipToInterviewed() {
	app := s.submit()
	_, err := s.Pipeline.Transition(app.ID, types.APPLICATION_SCREENING, "", "reviewer", nil)
	assert.Nil(s.T(), err)

	_, err = s.Pipeline.Transition(app.ID, types.APPLICATION_INTERVIEWED, "", "reviewer", nil)
	assert.Nil(s.T(), err)

	var refreshed models.Application
	assert.Nil(s.T(), s.DB.First(&refreshed, app.ID).Error)
	assert.Equal(s.T(), types.APPLICATION_INTERVIEWED, refreshed.Status)
	assert.Nil(s.T(), refreshed.InterviewAt)

	member, _, err := s.Pipeline.Accept(app.ID, "met at demo day", "reviewer")
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), "Widgets Inc", member.Name)
}

func (s *ApplicationTestSuite) TestScheduleInterviewRequiresFutureSlot() {
	app := s.submit()
	_, err := s.Pipeline.Transition(app.ID, types.APPLICATION_SCREENING, "", "reviewer", nil)
	assert.Nil(s.T(), err)

	_, err = s.Pipeline.ScheduleInterview(app.ID, time.Now().Add(-time.Hour), "HQ", "reviewer")
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsValidation(err))

	at := time.Now().AddDate(0, 0, 7)
	_, err = s.Pipeline.ScheduleInterview(app.ID, at, "HQ room 2", "reviewer")
	assert.Nil(s.T(), err)

	var refreshed models.Application
	assert.Nil(s.T(), s.DB.First(&refreshed, app.ID).Error)
	assert.Equal(s.T(), types.APPLICATION_INTERVIEW_SCHEDULED, refreshed.Status)
	assert.NotNil(s.T(), refreshed.InterviewAt)
	assert.Equal(s.T(), "HQ room 2", *refreshed.InterviewLocation)
}

func (s *ApplicationTestSuite) TestRecordScoresComputesOverall() {
	app := s.submit()

	_, err := s.Pipeline.RecordScores(app.ID, map[string]float64{"team": 11}, "reviewer")
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsValidation(err))

	updated, err := s.Pipeline.RecordScores(app.ID, map[string]float64{"team": 8, "market": 6}, "reviewer")
	assert.Nil(s.T(), err)
	assert.NotNil(s.T(), updated.OverallScore)
	assert.Equal(s.T(), float64(70), *updated.OverallScore)

	updated, err = s.Pipeline.RecordScores(app.ID, map[string]float64{"product": 10}, "reviewer")
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(80), *updated.OverallScore)
}

func (s *ApplicationTestSuite) TestRecordScoresRejectsDecidedApplication() {
	app := s.submit()
	_, err := s.Pipeline.Transition(app.ID, types.APPLICATION_REJECTED, "not a fit", "reviewer", nil)
	assert.Nil(s.T(), err)

	_, err = s.Pipeline.RecordScores(app.ID, map[string]float64{"team": 8}, "reviewer")
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsStateConflict(err))
}

func (s *ApplicationTestSuite) TestAcceptProvisionsMember() {
	app := s.submit()
	s.advanceToInterviewed(app)

	member, events, err := s.Pipeline.Accept(app.ID, "strong traction", "reviewer")
	assert.Nil(s.T(), err)
	assert.Len(s.T(), events, 1)
	assert.Equal(s.T(), "Widgets Inc", member.Name)
	assert.Equal(s.T(), "founders@widgets.test", member.Email)

	var refreshed models.Application
	assert.Nil(s.T(), s.DB.First(&refreshed, app.ID).Error)
	assert.Equal(s.T(), types.APPLICATION_ACCEPTED, refreshed.Status)

	var stored models.Member
	assert.Nil(s.T(), s.DB.Where(&models.Member{Email: "founders@widgets.test"}).First(&stored).Error)
}

func (s *ApplicationTestSuite) TestAcceptOnlyFromInterviewed() {
	app := s.submit()
	_, _, err := s.Pipeline.Accept(app.ID, "strong traction", "reviewer")
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsStateConflict(err))
}

func TestApplicationSuite(t *testing.T) {
	suite.Run(t, new(ApplicationTestSuite))
}
