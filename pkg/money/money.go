// Package money coerces the loosely-typed monetary values the storefront
// submits (numbers, numeric strings, currency-formatted strings) into
// canonical plain decimal strings. Parsing is total: malformed input becomes
// zero, never an error.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount parses any JSON-decoded value into a decimal. The second return
// reports whether the input was parsable.
func Amount(v any) (decimal.Decimal, bool) {
	switch typed := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(typed), true
	case float32:
		return decimal.NewFromFloat32(typed), true
	case int:
		return decimal.NewFromInt(int64(typed)), true
	case int32:
		return decimal.NewFromInt32(typed), true
	case int64:
		return decimal.NewFromInt(typed), true
	case string:
		cleaned := stripFormatting(typed)
		if cleaned == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// Canonical renders any monetary input as the plain decimal string stored in
// cart documents: "₹1,234.50" -> "1234.5", unparsable input -> "0".
func Canonical(v any) string {
	d, ok := Amount(v)
	if !ok {
		return "0"
	}
	return strconv.FormatFloat(d.InexactFloat64(), 'f', -1, 64)
}

// Numeric renders any price input as a plain number; unparsable input is 0.
func Numeric(v any) float64 {
	d, ok := Amount(v)
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

// stripFormatting drops currency symbols, grouping commas and whitespace,
// keeping only characters meaningful to a decimal parser.
func stripFormatting(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
