package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// AppConfig carries the service-level knobs. Services receive it at
// construction instead of reading settings from globals.
type AppConfig struct {
	InvoicePrefix        string
	DefaultCurrency      string
	DefaultGraceDays     uint
	InvoiceDueDays       uint
	ExpiringWindowDays   uint
	QuoteCacheTTL        time.Duration
	NotificationsEnabled bool
}

func LoadAppConfig() *AppConfig {
	cfg := &AppConfig{
		InvoicePrefix:      "INV",
		DefaultCurrency:    "USD",
		DefaultGraceDays:   5,
		InvoiceDueDays:     14,
		ExpiringWindowDays: 7,
		QuoteCacheTTL:      5 * time.Minute,
	}
	if v := os.Getenv("INVOICE_PREFIX"); v != "" {
		cfg.InvoicePrefix = v
	}
	if v := os.Getenv("DEFAULT_CURRENCY"); v != "" {
		cfg.DefaultCurrency = v
	}
	if v := os.Getenv("SUBSCRIPTION_GRACE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DefaultGraceDays = uint(n)
		}
	}
	if v := os.Getenv("INVOICE_DUE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.InvoiceDueDays = uint(n)
		}
	}
	if v := os.Getenv("EXPIRING_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExpiringWindowDays = uint(n)
		}
	}
	if v := os.Getenv("QUOTE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.QuoteCacheTTL = d
		}
	}
	cfg.NotificationsEnabled = os.Getenv("NOTIFICATIONS_ENABLED") == "true"
	return cfg
}
