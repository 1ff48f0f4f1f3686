package services

import (
	"cwms/src/config"
	"cwms/src/models"
	"log"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a throwaway sqlite database with the full schema. Pool
// size is pinned to one connection so every session sees the same in-memory
// database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening sqlite database", err)
	}
	inner, err := gdb.DB()
	if err != nil {
		t.Fatalf("Error accessing inner db instance: %s", err.Error())
	}
	inner.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
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
	); err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}
	return gdb
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		InvoicePrefix:      "INV",
		DefaultCurrency:    "USD",
		DefaultGraceDays:   5,
		InvoiceDueDays:     14,
		ExpiringWindowDays: 7,
		QuoteCacheTTL:      5 * time.Minute,
	}
}

func fptr(v float64) *float64 {
	return &v
}

func uptr(v uint) *uint {
	return &v
}

func tptr(v time.Time) *time.Time {
	return &v
}
