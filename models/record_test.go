package models

import (
	"encoding/json"
	"testing"
)

func TestFieldDescriptor_Raw(t *testing.T) {
	r := Record{"agent": map[string]any{"name": "Ravi"}, "total": json.Number("10")}
	cases := []struct {
		name     string
		field    FieldDescriptor
		expected any
	}{
		{"plain key", FieldDescriptor{Key: "total"}, json.Number("10")},
		{"dotted path", FieldDescriptor{Key: "agent.name"}, "Ravi"},
		{"missing dotted path", FieldDescriptor{Key: "agent.phone"}, nil},
		{"fallback", FieldDescriptor{Key: "status", Fallback: "Open"}, "Open"},
		{"accessor", FieldDescriptor{Key: "x", Accessor: func(r Record) any { return "computed" }}, "computed"},
	}
	for _, tc := range cases {
		if got := tc.field.Raw(r); got != tc.expected {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestFieldDescriptor_Display(t *testing.T) {
	t.Setenv("CURRENCY_SYMBOL", "₹")
	t.Setenv("CURRENCY_GROUPING", "")
	t.Setenv("DATE_DISPLAY_LAYOUT", "")

	r := Record{
		"amount":  "2500000",
		"bad":     "N/A",
		"date":    "2024-02-29T00:00:00Z",
		"count":   json.Number("1e3"),
		"blocked": true,
		"agent":   map[string]any{"name": "Ravi", "phone": "98480"},
	}
	cases := []struct {
		field    FieldDescriptor
		expected string
	}{
		{FieldDescriptor{Key: "amount", Type: FieldTypeCurrency}, "₹ 25,00,000.00"},
		{FieldDescriptor{Key: "bad", Type: FieldTypeCurrency}, "N/A"},
		{FieldDescriptor{Key: "date", Type: FieldTypeDate}, "29-02-2024"},
		{FieldDescriptor{Key: "count", Type: FieldTypeNumber}, "1000"},
		{FieldDescriptor{Key: "blocked"}, "true"},
		{FieldDescriptor{Key: "agent", SubFields: []string{"name", "phone"}}, "Ravi 98480"},
		{FieldDescriptor{Key: "agent"}, "Ravi"},
		{FieldDescriptor{Key: "missing"}, ""},
	}
	for _, tc := range cases {
		if got := tc.field.Display(r, nil); got != tc.expected {
			t.Fatalf("Display(%s) expected %q, got %q", tc.field.Key, tc.expected, got)
		}
	}
}

func TestStringify(t *testing.T) {
	cases := []struct {
		in       any
		expected string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("12"), "12"},
		{1500000.0, "1500000"},
		{false, "false"},
		{42, "42"},
	}
	for _, tc := range cases {
		if got := Stringify(tc.in); got != tc.expected {
			t.Fatalf("Stringify(%v) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}
