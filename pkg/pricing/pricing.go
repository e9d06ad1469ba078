// Package pricing normalizes the loosely typed price values the
// backend serves and derives display-ready discount percentages.
package pricing

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// priceWithCurrency matches strings like "1299,50 usd" or "49.99 EUR":
// a decimal magnitude followed by a 3-5 letter currency code.
var priceWithCurrency = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s+([A-Za-z]{3,5})$`)

// Parse extracts a display price and an optional currency code from a
// raw backend price value. It never fails: nil yields an empty price,
// numbers pass through without a currency, "<num> <CUR>" strings are
// split with the decimal comma normalized and the code uppercased, and
// any other string is returned trimmed as-is so the caller can still
// render it.
func Parse(v any) (price, currency string) {
	switch p := v.(type) {
	case nil:
		return "", ""
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64), ""
	case int:
		return strconv.Itoa(p), ""
	case json.Number:
		return p.String(), ""
	case string:
		s := strings.TrimSpace(p)
		if s == "" {
			return "", ""
		}
		if m := priceWithCurrency.FindStringSubmatch(s); m != nil {
			return strings.ReplaceAll(m[1], ",", "."), strings.ToUpper(m[2])
		}
		return s, ""
	default:
		return "", ""
	}
}

// Discount computes the rounded percentage off between the original
// and current price. It reports false unless both values are numeric,
// the original is positive and strictly greater than the current.
func Discount(current, original any) (int, bool) {
	c, ok := numeric(current)
	if !ok {
		return 0, false
	}
	o, ok := numeric(original)
	if !ok || o <= 0 || o <= c {
		return 0, false
	}
	return int(math.Round((o - c) / o * 100)), true
}

// numeric coerces a raw price value to float64, tolerating the same
// "<num> <CUR>" strings Parse accepts.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if m := priceWithCurrency.FindStringSubmatch(s); m != nil {
			s = m[1]
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
