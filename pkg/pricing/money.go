package pricing

import (
	"math"

	"github.com/shopspring/decimal"
)

const currencySymbol = "৳"

// Round2 rounds half away from zero to two decimals. NaN and ±Inf round to 0.
func Round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// Fixed2 renders f with exactly two decimals, the wire format for amounts.
func Fixed2(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}

// FormatTaka renders an amount for display, e.g. "৳120.00".
func FormatTaka(f float64) string {
	return currencySymbol + Fixed2(f)
}
