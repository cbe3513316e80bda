package utils

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a numeric value out of raw record data.
// Accepts user-formatted strings like "20,000", "₹ 1,00,000.50", "Rs. -20,000" or "INR 500".
// Keeps digits, '.', and a leading '-' only.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		return parseAmountString(t)
	}
	return decimal.Zero, false
}

func parseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	neg := false
	var b strings.Builder
	b.Grow(len(s) + 1)
	seenDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			b.WriteRune(r)
		case r == '.' && seenDigit:
			b.WriteRune(r)
		case r == '.':
			// "Rs." prefix
		case r == '-' && !seenDigit:
			neg = true
		case r == ',' || r == ' ' || r == ' ':
		default:
			// letters inside the number ("12abc") are not an amount; a currency prefix is
			if seenDigit {
				return decimal.Zero, false
			}
		}
	}
	clean := b.String()
	if !seenDigit {
		return decimal.Zero, false
	}
	if neg {
		clean = "-" + clean
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders d with two decimals and digit grouping.
// indian groups as 12,34,567.00; otherwise 1,234,567.00.
func FormatAmount(d decimal.Decimal, symbol string, indian bool) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	grouped := groupDigits(intPart, indian)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if symbol != "" {
		b.WriteString(symbol)
		b.WriteByte(' ')
	}
	b.WriteString(grouped)
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func groupDigits(digits string, indian bool) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	size := 3
	if indian {
		size = 2
	}
	var parts []string
	for len(head) > size {
		parts = append([]string{head[len(head)-size:]}, parts...)
		head = head[:len(head)-size]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}
