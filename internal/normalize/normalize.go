package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// currencyRe matches the currency symbols and thousands separators that
// appear in cart price strings (USD, GBP, EUR, INR).
var currencyRe = regexp.MustCompile(`[$£€₹,]`)

// numberPrefixRe captures a leading decimal number, mirroring how lenient
// price fields are parsed from markup ("5.00 USD" yields 5).
var numberPrefixRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// CoercePrice converts a raw price value into a number. Numeric inputs pass
// through unless non-finite; strings are stripped of currency symbols and
// commas and parsed as a decimal; nil and unparseable inputs yield 0. The
// result is never NaN. A minus sign is not specially guarded, so "-5"
// coerces to -5.
func CoercePrice(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return CoercePrice(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		return coercePriceString(n)
	default:
		return 0
	}
}

func coercePriceString(s string) float64 {
	f, _ := ParsePrice(s)
	return f
}

// ParsePrice parses a price string after stripping currency symbols and
// commas. The second return reports whether a number was actually found,
// which lets callers with their own fallback chain distinguish a genuine
// zero from an unparseable value.
func ParsePrice(s string) (float64, bool) {
	cleaned := strings.TrimSpace(currencyRe.ReplaceAllString(s, ""))
	m := numberPrefixRe.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CollapseWhitespace trims the input and collapses internal whitespace runs
// to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
