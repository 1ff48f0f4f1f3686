package services

import (
	"cwms/src/models"
	"cwms/src/types"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestSelectPriceUnit(t *testing.T) {
	day := time.Date(2027, 3, 10, 0, 0, 0, 0, time.UTC)

	room := &models.SpaceResource{Type: types.RESOURCE_MEETING_ROOM, HourlyRate: fptr(25)}
	assert.Equal(t, types.PRICE_UNIT_HOUR, SelectPriceUnit(room, day, day.Add(6*time.Hour)))

	desk := &models.SpaceResource{Type: types.RESOURCE_HOT_DESK, DailyRate: fptr(18)}
	assert.Equal(t, types.PRICE_UNIT_DAY, SelectPriceUnit(desk, day, day.Add(2*time.Hour)))

	office := &models.SpaceResource{
		Type:        types.RESOURCE_PRIVATE_OFFICE,
		HourlyRate:  fptr(12),
		DailyRate:   fptr(65),
		MonthlyRate: fptr(1200),
	}
	assert.Equal(t, types.PRICE_UNIT_MONTH, SelectPriceUnit(office, day, day.AddDate(0, 0, 30)))
	assert.Equal(t, types.PRICE_UNIT_DAY, SelectPriceUnit(office, day, day.AddDate(0, 0, 3)))
	assert.Equal(t, types.PRICE_UNIT_HOUR, SelectPriceUnit(office, day, day.Add(5*time.Hour)))
}

func TestQuantityRoundsPartialUnitsUp(t *testing.T) {
	day := time.Date(2027, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, float64(2), QuantityFor(types.PRICE_UNIT_HOUR, day, day.Add(90*time.Minute)))
	assert.Equal(t, float64(1), QuantityFor(types.PRICE_UNIT_HOUR, day, day.Add(time.Hour)))
	assert.Equal(t, float64(3), QuantityFor(types.PRICE_UNIT_DAY, day, day.Add(49*time.Hour)))
	assert.Equal(t, float64(1), QuantityFor(types.PRICE_UNIT_MONTH, day, day.AddDate(0, 0, 29)))
}

func TestUnitRateDerivesFromHourly(t *testing.T) {
	resource := &models.SpaceResource{HourlyRate: fptr(10)}

	rate, ok := UnitRate(resource, types.PRICE_UNIT_DAY)
	assert.True(t, ok)
	assert.Equal(t, float64(80), rate)

	rate, ok = UnitRate(resource, types.PRICE_UNIT_WEEK)
	assert.True(t, ok)
	assert.Equal(t, float64(400), rate)

	rate, ok = UnitRate(resource, types.PRICE_UNIT_MONTH)
	assert.True(t, ok)
	assert.Equal(t, float64(1600), rate)

	configured := &models.SpaceResource{HourlyRate: fptr(10), DailyRate: fptr(65)}
	rate, ok = UnitRate(configured, types.PRICE_UNIT_DAY)
	assert.True(t, ok)
	assert.Equal(t, float64(65), rate)

	bare := &models.SpaceResource{}
	_, ok = UnitRate(bare, types.PRICE_UNIT_HOUR)
	assert.False(t, ok)
}

type PricingTestSuite struct {
	suite.Suite
	DB       *gorm.DB
	Pricer   *PricingCalculator
	Ledger   *CreditLedger
	Member   *models.Member
	Plan     *models.Plan
	Resource *models.SpaceResource
}

func (s *PricingTestSuite) SetupTest() {
	s.DB = newTestDB(s.T())
	s.Ledger = NewCreditLedger()
	s.Pricer = NewPricingCalculator(s.Ledger)

	plan := models.Plan{Name: "Growth", Slug: "growth", Price: 249, Currency: "USD", DurationDays: 30, Active: true}
	assert.Nil(s.T(), s.DB.Create(&plan).Error)
	s.Plan = &plan

	member := models.Member{Name: "Acme Labs", Email: "ops@acme.test"}
	assert.Nil(s.T(), s.DB.Create(&member).Error)

	sub := models.Subscription{
		MemberID:      member.ID,
		PlanID:        plan.ID,
		Status:        types.SUBSCRIPTION_ACTIVE,
		PriceSnapshot: plan.Price,
		Currency:      plan.Currency,
	}
	assert.Nil(s.T(), s.DB.Create(&sub).Error)
	member.Subscriptions = []models.Subscription{sub}
	s.Member = &member

	resource := models.SpaceResource{
		Name:       "Boardroom A",
		Slug:       "boardroom-a",
		Type:       types.RESOURCE_MEETING_ROOM,
		HourlyRate: fptr(25),
		Currency:   "USD",
		Active:     true,
		PlanDiscounts: types.JSONB{
			fmt.Sprintf("%d", plan.ID): float64(20),
		},
	}
	assert.Nil(s.T(), s.DB.Create(&resource).Error)
	s.Resource = &resource
}

func (s *PricingTestSuite) grantCredits(total float64) {
	credit := models.BookingCredit{
		MemberID:     s.Member.ID,
		ResourceType: types.RESOURCE_MEETING_ROOM,
		PeriodStart:  time.Now().Add(-time.Hour),
		PeriodEnd:    time.Now().Add(30 * 24 * time.Hour),
		Total:        total,
	}
	assert.Nil(s.T(), s.DB.Create(&credit).Error)
}

func (s *PricingTestSuite) TestGuestPaysFullPrice() {
	day := time.Date(2027, 3, 10, 10, 0, 0, 0, time.UTC)
	price, err := s.Pricer.CalculatePrice(s.DB, s.Resource, day, day.Add(2*time.Hour), nil)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(25), price.UnitPrice)
	assert.Equal(s.T(), float64(2), price.Quantity)
	assert.Equal(s.T(), float64(50), price.BasePrice)
	assert.Equal(s.T(), float64(0), price.DiscountAmount)
	assert.Equal(s.T(), float64(0), price.CreditsUsed)
	assert.Equal(s.T(), float64(50), price.TotalPrice)
}

func (s *PricingTestSuite) TestDiscountAndCreditsStack() {
	s.grantCredits(1)
	day := time.Date(2027, 3, 10, 10, 0, 0, 0, time.UTC)
	price, err := s.Pricer.CalculatePrice(s.DB, s.Resource, day, day.Add(2*time.Hour), s.Member)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(50), price.BasePrice)
	assert.Equal(s.T(), float64(10), price.DiscountAmount)
	assert.Equal(s.T(), float64(1), price.CreditsUsed)
	assert.Equal(s.T(), float64(15), price.TotalPrice)
}

func (s *PricingTestSuite) TestCreditsCappedAtQuantity() {
	s.grantCredits(10)
	day := time.Date(2027, 3, 10, 10, 0, 0, 0, time.UTC)
	price, err := s.Pricer.CalculatePrice(s.DB, s.Resource, day, day.Add(2*time.Hour), s.Member)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(2), price.CreditsUsed)
	assert.Equal(s.T(), float64(0), price.TotalPrice)
}

func (s *PricingTestSuite) TestNoBenefitsWithoutActiveSubscription() {
	s.grantCredits(5)
	lapsed := models.Member{ID: s.Member.ID, Email: s.Member.Email}
	day := time.Date(2027, 3, 10, 10, 0, 0, 0, time.UTC)
	price, err := s.Pricer.CalculatePrice(s.DB, s.Resource, day, day.Add(2*time.Hour), &lapsed)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(0), price.DiscountAmount)
	assert.Equal(s.T(), float64(0), price.CreditsUsed)
	assert.Equal(s.T(), float64(50), price.TotalPrice)
}

func (s *PricingTestSuite) TestQuoteReportsBalanceWithoutSpending() {
	s.grantCredits(5)
	day := time.Date(2027, 3, 10, 10, 0, 0, 0, time.UTC)

	quote, err := s.Pricer.GetQuote(s.DB, s.Resource, day, day.Add(2*time.Hour), s.Member)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(5), quote.AvailableCredits)
	assert.Equal(s.T(), float64(2), quote.CreditsUsed)

	available, err := s.Ledger.GetAvailable(s.DB, s.Member.ID, types.RESOURCE_MEETING_ROOM)
	assert.Nil(s.T(), err)
	assert.Equal(s.T(), float64(5), available)
}

func (s *PricingTestSuite) TestMissingRateIsAnError() {
	bare := models.SpaceResource{
		Name:     "Shell Room",
		Slug:     "shell-room",
		Type:     types.RESOURCE_MEETING_ROOM,
		Currency: "USD",
		Active:   true,
	}
	assert.Nil(s.T(), s.DB.Create(&bare).Error)
	day := time.Date(2027, 3, 10, 10, 0, 0, 0, time.UTC)
	_, err := s.Pricer.CalculatePrice(s.DB, &bare, day, day.Add(time.Hour), nil)
	assert.NotNil(s.T(), err)
	assert.True(s.T(), IsValidation(err))
}

func TestPricingSuite(t *testing.T) {
	suite.Run(t, new(PricingTestSuite))
}
