// Package money centralizes amount arithmetic. Amounts live as float64 in the
// models and in Postgres; all summing goes through decimals so a long ledger
// does not accumulate binary-float drift.
package money

import "github.com/shopspring/decimal"

// Round rounds an amount to two decimal places.
func Round(amount float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return v
}

// Sum adds amounts exactly and rounds the result to two decimal places.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	v, _ := total.Round(2).Float64()
	return v
}

// Sub returns a-b rounded to two decimal places.
func Sub(a, b float64) float64 {
	v, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return v
}

// Percentage returns part/whole*100 rounded to two decimal places,
// and 0 when whole is 0.
func Percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	v, _ := decimal.NewFromFloat(part).
		Div(decimal.NewFromFloat(whole)).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return v
}
