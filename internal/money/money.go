// Package money holds rounding helpers for prices and percentages.
package money

import "github.com/shopspring/decimal"

// Round2 rounds v half away from zero to two decimal places.
// Going through decimal avoids float artefacts such as 33.33499999 rounding down.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
