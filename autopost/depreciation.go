/*
depreciation.go - Straight-line depreciation schedule math

PURPOSE:
  Computes the per-period amounts that feed DepreciationRun events. Only
  straight-line over months is supported; the depreciable base is cost
  minus residual value spread evenly over the useful life.
*/
package autopost

import (
	"github.com/shopspring/decimal"

	"github.com/warp/books-engine/books"
)

var monthsPerYear = decimal.NewFromInt(12)

// StraightLineMonthly returns one month's depreciation for an asset:
// (cost - residual) / (usefulLifeYears * 12), rounded to 2 places.
func StraightLineMonthly(cost, residual decimal.Decimal, usefulLifeYears int) (decimal.Decimal, error) {
	if usefulLifeYears <= 0 {
		return decimal.Zero, &books.ValidationError{Field: "useful_life_years", Message: "must be positive"}
	}
	if cost.IsNegative() {
		return decimal.Zero, &books.ValidationError{Field: "cost", Message: "must not be negative"}
	}
	if residual.IsNegative() {
		return decimal.Zero, &books.ValidationError{Field: "residual", Message: "must not be negative"}
	}
	if residual.GreaterThan(cost) {
		return decimal.Zero, &books.ValidationError{Field: "residual", Message: "must not exceed cost"}
	}
	months := decimal.NewFromInt(int64(usefulLifeYears)).Mul(monthsPerYear)
	return cost.Sub(residual).Div(months).Round(2), nil
}

// BookValue is the asset's carrying amount after the given accumulated
// depreciation, floored at the residual value.
func BookValue(cost, residual, accumulated decimal.Decimal) decimal.Decimal {
	value := cost.Sub(accumulated)
	if value.LessThan(residual) {
		return residual
	}
	return value
}
