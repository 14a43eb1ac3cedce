// Package services provides estimate reconciliation, budget ledger storage
// and export functions for imported construction estimates.
package services

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultQuantityPlaces is the precision kept for derived quantities.
const DefaultQuantityPlaces int32 = 3

// RoundCurrency rounds v half away from zero to a whole currency unit.
func RoundCurrency(v decimal.Decimal) decimal.Decimal {
	return v.Round(0)
}

// CalcAmount returns round(qty × unitPrice).
func CalcAmount(qty, unitPrice float64) float64 {
	return RoundCurrency(decimal.NewFromFloat(qty).Mul(decimal.NewFromFloat(unitPrice))).InexactFloat64()
}

// CalcUnitPrice returns round(amount / qty). ok is false when qty is zero.
func CalcUnitPrice(amount, qty float64) (float64, bool) {
	if qty == 0 {
		return 0, false
	}
	d := decimal.NewFromFloat(amount).Div(decimal.NewFromFloat(qty))
	return RoundCurrency(d).InexactFloat64(), true
}

// CalcQuantity returns amount / unitPrice rounded to places decimals. ok is
// false when unitPrice is zero.
func CalcQuantity(amount, unitPrice float64, places int32) (float64, bool) {
	if unitPrice == 0 {
		return 0, false
	}
	d := decimal.NewFromFloat(amount).Div(decimal.NewFromFloat(unitPrice))
	return d.Round(places).InexactFloat64(), true
}

// AmountsAgree reports whether a supplied amount matches round(qty × unitPrice)
// within tolerance whole currency units.
func AmountsAgree(qty, unitPrice, amount, tolerance float64) bool {
	expected := decimal.NewFromFloat(CalcAmount(qty, unitPrice))
	diff := RoundCurrency(decimal.NewFromFloat(amount)).Sub(expected).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}

// SumAmounts adds amounts exactly and rounds the total to a whole unit.
// NaN and infinite amounts are skipped.
func SumAmounts(amounts []float64) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		if !isFinite(a) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(a))
	}
	return RoundCurrency(total)
}

// isFinite reports whether v can be represented as a decimal.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
