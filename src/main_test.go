package main

import (
	"cwms/src/config"
	"cwms/src/db"
	"cwms/src/middlewares"
	"cwms/src/models"
	"cwms/src/types"
	"cwms/src/utils"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB          *gorm.DB
	Cfg         *config.AppConfig
	Member      *models.Member
	Resource    *models.SpaceResource
	GuestToken  string
	MemberToken string
	AdminToken  string
}

func NewTestDB() *gorm.DB {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening sqlite database", err)
	}
	inner, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Error accessing inner db instance: %s", err.Error())
	}
	inner.SetMaxOpenConns(1)
	return gormDB
}

func (s *TestSuite) SetupSuite() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("bookabledate", bookableDateValidatorFunc)
		v.RegisterValidation("gtdate", gtfield)
		v.RegisterValidation("ltdate", ltfield)
	}

	d := NewTestDB()
	db.NewDB(d)
	s.DB = d
	s.Cfg = config.LoadAppConfig()

	err := d.AutoMigrate(
		&models.User{},
		&models.Member{},
		&models.Plan{},
		&models.Subscription{},
		&models.SubscriptionHistory{},
		&models.SpaceResource{},
		&models.Booking{},
		&models.BookingCredit{},
		&models.Cohort{},
		&models.Application{},
		&models.ApplicationStatusHistory{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceSequence{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	hourly := float64(25)
	guest := models.User{Email: "guest@example.com", Name: "Guest User", Role: "guest"}
	admin := models.User{Email: "admin@example.com", Name: "Admin User", Role: "admin"}
	memberUser := models.User{Email: "ops@acme.test", Name: "Acme Ops", Role: "guest"}
	member := models.Member{Name: "Acme Labs", Email: "ops@acme.test"}
	resource := models.SpaceResource{
		Name:       "Boardroom A",
		Slug:       "boardroom-a",
		Type:       types.RESOURCE_MEETING_ROOM,
		HourlyRate: &hourly,
		Currency:   "USD",
		Active:     true,
	}
	plan := models.Plan{Name: "Growth", Slug: "growth", Price: 249, Currency: "USD", DurationDays: 30, GraceDays: 5, Active: true}
	cohort := models.Cohort{
		Name:      "Spring 2027",
		Slug:      "spring-2027",
		StartDate: time.Now().AddDate(0, 1, 0),
		EndDate:   time.Now().AddDate(0, 4, 0),
	}
	if err := d.Transaction(func(tx *gorm.DB) error {
		for _, rec := range []any{&guest, &admin, &memberUser, &member, &resource, &plan, &cohort} {
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		log.Fatalf("Could not seed test data due to error: %s\n", err.Error())
	}
	s.Member = &member
	s.Resource = &resource

	guestToken, err := utils.GenerateToken(&guest, 0)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.GuestToken = guestToken
	adminToken, err := utils.GenerateToken(&admin, 0)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.AdminToken = adminToken
	memberToken, err := utils.GenerateToken(&memberUser, member.ID)
	if err != nil {
		log.Fatalf("Error generating JWT token: %s\n", err.Error())
	}
	s.MemberToken = memberToken
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) authorizedRouter() *gin.Engine {
	router := setupRouter()
	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	resourceHandlers(authorized, s.Cfg)
	bookingHandlers(authorized, s.Cfg)
	subscriptionHandlers(authorized, s.Cfg)
	invoiceHandlers(authorized, s.Cfg)
	memberHandlers(authorized, s.Cfg)
	return router
}

func jsonRequest(method, target, token string, body any) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = strings.NewReader(string(raw))
	}
	req, _ := http.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req
}

func wireTime(t time.Time) string {
	return t.Format(config.TIME_PARSE_FORMAT)
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestAuthRoutes() {
	router := setupRouter()
	authRoutes(router)

	s.Run("Should register a guest account and return a token", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/register", "", map[string]any{
			"email": "new@example.com",
			"name":  "New User",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		token := gjson.Get(string(rbytes), "token").String()
		assert.NotEmpty(s.T(), token)
	})

	s.Run("Should log a known account in", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/login", "", map[string]any{
			"email": "guest@example.com",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.NotEmpty(s.T(), gjson.Get(string(rbytes), "token").String())
	})

	s.Run("Should reject an unknown account", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/login", "", map[string]any{
			"email": "nobody@example.com",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should return a 400 error response", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/register", "", map[string]any{
			"email": "not-an-email",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestPublicRoutes() {
	router := setupRouter()
	publicRoutes(router, s.Cfg)

	s.Run("Should list active plans", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/plans", "", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.GreaterOrEqual(s.T(), gjson.Get(string(rbytes), "count").Int(), int64(1))
	})

	s.Run("Should list open cohorts", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/cohorts", "", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
	})

	s.Run("Should accept an application submission", func() {
		var cohort models.Cohort
		assert.Nil(s.T(), s.DB.Where(&models.Cohort{Slug: "spring-2027"}).First(&cohort).Error)

		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/applications", "", map[string]any{
			"cohort":        cohort.ID,
			"startup_name":  "Widgets Inc",
			"industry":      "hardware",
			"pitch":         "widgets but smaller",
			"contact_email": "founders@widgets.test",
			"founders":      []map[string]any{{"name": "Jo Founder", "role": "CEO"}},
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), "submitted", gjson.Get(string(rbytes), "data.status").String())
	})

	s.Run("Should return a 400 error response", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/applications", "", map[string]any{
			"startup_name": "No Cohort Inc",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestResources() {
	router := s.authorizedRouter()

	s.Run("Should require authentication", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/resources", "", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 401, w.Code)
	})

	s.Run("Should list active resources", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/resources", s.GuestToken, nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.GreaterOrEqual(s.T(), gjson.Get(string(rbytes), "count").Int(), int64(1))
	})

	s.Run("Should answer availability for a free window", func() {
		start := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Hour)
		query := url.Values{}
		query.Set("start", wireTime(start))
		query.Set("end", wireTime(start.Add(time.Hour)))

		w := httptest.NewRecorder()
		target := fmt.Sprintf("/api/v1/resources/%d/availability?%s", s.Resource.ID, query.Encode())
		req := jsonRequest("GET", target, s.GuestToken, nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.True(s.T(), gjson.Get(string(rbytes), "available").Bool())
	})
}

func (s *TestSuite) TestBookings() {
	router := s.authorizedRouter()

	start := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	var bookingID int64

	s.Run("Should quote a window without booking it", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/bookings/quote", s.MemberToken, map[string]any{
			"resource": s.Resource.ID,
			"start":    wireTime(start),
			"end":      wireTime(start.Add(2 * time.Hour)),
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), float64(50), gjson.Get(string(rbytes), "data.total_price").Float())
	})

	s.Run("Should create a confirmed booking", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/bookings", s.MemberToken, map[string]any{
			"resource": s.Resource.ID,
			"start":    wireTime(start),
			"end":      wireTime(start.Add(2 * time.Hour)),
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.Equal(s.T(), "confirmed", gjson.Get(sjson, "data.status").String())
		bookingID = gjson.Get(sjson, "data.id").Int()
		assert.Greater(s.T(), bookingID, int64(0))
	})

	s.Run("Should reject a conflicting booking", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/bookings", s.GuestToken, map[string]any{
			"resource": s.Resource.ID,
			"start":    wireTime(start.Add(time.Hour)),
			"end":      wireTime(start.Add(3 * time.Hour)),
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 422, w.Code)
	})

	s.Run("Should reject a past start date", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/bookings", s.MemberToken, map[string]any{
			"resource": s.Resource.ID,
			"start":    wireTime(time.Now().Add(-48 * time.Hour)),
			"end":      wireTime(time.Now().Add(-46 * time.Hour)),
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should list the owner's bookings", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/bookings", s.MemberToken, nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.GreaterOrEqual(s.T(), gjson.Get(string(rbytes), "count").Int(), int64(1))
	})

	s.Run("Should reschedule the booking", func() {
		newStart := start.Add(6 * time.Hour)
		w := httptest.NewRecorder()
		target := fmt.Sprintf("/api/v1/bookings/%d/reschedule", bookingID)
		req := jsonRequest("PUT", target, s.MemberToken, map[string]any{
			"start": wireTime(newStart),
			"end":   wireTime(newStart.Add(time.Hour)),
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Equal(s.T(), float64(25), gjson.Get(string(rbytes), "data.total_price").Float())
	})

	s.Run("Should cancel the booking", func() {
		w := httptest.NewRecorder()
		target := fmt.Sprintf("/api/v1/bookings/%d/cancel", bookingID)
		req := jsonRequest("PUT", target, s.MemberToken, map[string]any{
			"reason": "plans changed",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 204, w.Code)
	})
}

func (s *TestSuite) TestSubscriptions() {
	router := s.authorizedRouter()

	s.Run("Should refuse a guest without membership", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/subscriptions", s.GuestToken, map[string]any{
			"plan": 1,
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Should open and activate a subscription", func() {
		var plan models.Plan
		assert.Nil(s.T(), s.DB.Where(&models.Plan{Slug: "growth"}).First(&plan).Error)

		w := httptest.NewRecorder()
		req := jsonRequest("POST", "/api/v1/subscriptions", s.MemberToken, map[string]any{
			"plan":       plan.ID,
			"auto_renew": true,
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		sjson := string(rbytes)
		assert.Equal(s.T(), "pending", gjson.Get(sjson, "data.status").String())
		subID := gjson.Get(sjson, "data.id").Int()

		w = httptest.NewRecorder()
		target := fmt.Sprintf("/api/v1/subscriptions/%d/activate", subID)
		req = jsonRequest("PUT", target, s.MemberToken, map[string]any{
			"payment_reference": "pi_123",
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 204, w.Code)

		var refreshed models.Subscription
		assert.Nil(s.T(), s.DB.First(&refreshed, subID).Error)
		assert.Equal(s.T(), types.SUBSCRIPTION_ACTIVE, refreshed.Status)
	})
}

func (s *TestSuite) TestAdminSurface() {
	router := setupRouter()
	admin := router.Group(apiPrefix + "/admin")
	admin.Use(middlewares.AuthMiddleware, middlewares.AdminMiddleware)
	bookingAdminHandlers(admin, s.Cfg)
	memberAdminHandlers(admin, s.Cfg)

	s.Run("Should refuse a non-admin token", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/admin/bookings", s.GuestToken, nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 403, w.Code)
	})

	s.Run("Should list all bookings for an admin", func() {
		w := httptest.NewRecorder()
		req := jsonRequest("GET", "/api/v1/admin/bookings", s.AdminToken, nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 200, w.Code)
	})

	s.Run("Should grant member credits", func() {
		now := time.Now()
		w := httptest.NewRecorder()
		target := fmt.Sprintf("/api/v1/admin/members/%d/credits", s.Member.ID)
		req := jsonRequest("POST", target, s.AdminToken, map[string]any{
			"resource_type": "meeting_room",
			"total":         10,
			"period_start":  wireTime(now.Add(-time.Hour)),
			"period_end":    wireTime(now.AddDate(0, 1, 0)),
		})
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 201, w.Code)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
