package utils

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       any
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"₹ 1,00,000.50", "100000.5"},
		{"Rs. -20,000", "-20000"},
		{"  INR 1,234.50  ", "1234.5"},
		{json.Number("50"), "50"},
		{12.5, "12.5"},
		{7, "7"},
	}
	for _, tc := range cases {
		d, ok := ParseAmount(tc.in)
		if !ok {
			t.Fatalf("ParseAmount(%v) not parsed", tc.in)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseAmount(%v) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseAmount_RejectsNonAmounts(t *testing.T) {
	for _, in := range []any{nil, "", "Alice", "2024-01-02", "12abc", true, map[string]any{}} {
		if d, ok := ParseAmount(in); ok {
			t.Fatalf("ParseAmount(%v) expected failure, got %s", in, d)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in       string
		symbol   string
		indian   bool
		expected string
	}{
		{"100000", "₹", true, "₹ 1,00,000.00"},
		{"12345678.5", "₹", true, "₹ 1,23,45,678.50"},
		{"12345678.5", "", false, "12,345,678.50"},
		{"999", "", true, "999.00"},
		{"-1500", "$", false, "-$ 1,500.00"},
	}
	for _, tc := range cases {
		got := FormatAmount(decimal.RequireFromString(tc.in), tc.symbol, tc.indian)
		if got != tc.expected {
			t.Fatalf("FormatAmount(%s) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}
