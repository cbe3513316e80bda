package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPageSize      = 10
	DefaultDateLayout    = "02-01-2006"
	DefaultPhoneRegion   = "IN"
	DefaultViewTTL       = 30 * time.Minute
	DefaultUpstreamLimit = 60 * time.Second
)

// PageSizes are the only page sizes the console offers.
var PageSizes = []int{5, 10, 25, 50, 100}

func init() {
	// Load env from .env
	godotenv.Load()
}

// UpstreamBaseURL is the REST backend the console proxies to.
//
// Set via env:
// - UPSTREAM_BASE_URL=https://api.example.com/api
func UpstreamBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL")), "/")
}

// UpstreamTimeout bounds one upstream request. There is no retry.
func UpstreamTimeout() time.Duration {
	return time.Duration(intFromEnv("UPSTREAM_TIMEOUT_SECONDS", int(DefaultUpstreamLimit/time.Second))) * time.Second
}

// DateLayout is the display layout of date cells, on screen and in exports.
func DateLayout() string {
	if v := strings.TrimSpace(os.Getenv("DATE_DISPLAY_LAYOUT")); v != "" {
		return v
	}
	return DefaultDateLayout
}

// PhoneRegion is the default region for phone numbers typed without a country code.
func PhoneRegion() string {
	if v := strings.ToUpper(strings.TrimSpace(os.Getenv("PHONE_REGION"))); v != "" {
		return v
	}
	return DefaultPhoneRegion
}

// ViewTTL is how long an idle view session is kept before it is evicted.
func ViewTTL() time.Duration {
	minutes := intFromEnv("VIEW_TTL_MINUTES", int(DefaultViewTTL/time.Minute))
	if minutes <= 0 {
		return DefaultViewTTL
	}
	return time.Duration(minutes) * time.Minute
}

// ReportLogoPath points to an image printed in the header of PDF exports. Optional.
func ReportLogoPath() string {
	return strings.TrimSpace(os.Getenv("REPORT_LOGO_PATH"))
}

// OrganizationName is printed above every exported report.
func OrganizationName() string {
	if v := strings.TrimSpace(os.Getenv("ORGANIZATION_NAME")); v != "" {
		return v
	}
	return "Estate Console"
}

// CurrencySymbol prefixes currency cells.
func CurrencySymbol() string {
	if v, ok := os.LookupEnv("CURRENCY_SYMBOL"); ok {
		return strings.TrimSpace(v)
	}
	return "₹"
}

// IndianGrouping groups currency digits as 1,00,000 unless CURRENCY_GROUPING=western.
func IndianGrouping() bool {
	return !strings.EqualFold(strings.TrimSpace(os.Getenv("CURRENCY_GROUPING")), "western")
}

func IsValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
