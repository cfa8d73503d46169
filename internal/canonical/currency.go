package canonical

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// rates maps an ISO currency code to its USD multiplier. Static reference
// values: cross-currency comparison is best-effort, not a live FX feed.
var rates = map[string]float64{
	"USD": 1,
	"EUR": 1.08,
	"GBP": 1.27,
	"CAD": 0.74,
	"AUD": 0.66,
	"JPY": 0.0067,
	"CNY": 0.14,
	"INR": 0.012,
	"MXN": 0.058,
}

var priceNumber = regexp.MustCompile(`\d[\d,]*\.?\d*`)

// NormalizeCode validates and uppercases an ISO-4217 currency code.
// Returns "" for unknown or malformed codes.
func NormalizeCode(code string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if len(trimmed) != 3 {
		return ""
	}
	if _, ok := rates[trimmed]; !ok {
		return ""
	}
	return trimmed
}

// Convert converts amount between currencies using the static rate table.
// The second return value reports whether a conversion was possible; when
// false the caller should keep the original amount and currency.
func Convert(amount float64, from, to string) (float64, bool) {
	src := NormalizeCode(from)
	dst := NormalizeCode(to)
	if src == "" || dst == "" {
		return 0, false
	}
	if src == dst {
		return Round2(amount), true
	}
	srcRate, dstRate := rates[src], rates[dst]
	if srcRate <= 0 || dstRate <= 0 {
		return 0, false
	}
	return Round2(amount * srcRate / dstRate), true
}

// ParsePrice extracts a non-negative amount from a free-form price string
// such as "$1,299.99" or "USD 45". Returns false for text without a usable
// number ("call for quote", "").
func ParsePrice(raw string) (float64, bool) {
	match := priceNumber.FindString(raw)
	if match == "" {
		return 0, false
	}
	cleaned := strings.ReplaceAll(match, ",", "")
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount < 0 {
		return 0, false
	}
	return Round2(amount), true
}

// Round2 rounds half-up to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
