// Package pricing converts price quotes in heterogeneous units into a
// comparable price per 100 grams.
package pricing

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Input is one price quote as stored on a report, plus the product's
// default unit weight needed for per-unit and per-package quotes.
type Input struct {
	RegularPrice       float64
	SalePrice          *float64
	Unit               string
	Quantity           float64
	DefaultWeightGrams *float64
}

// KnownUnit reports whether unit (case-insensitive) can be normalized.
func KnownUnit(unit string) bool {
	switch strings.ToLower(unit) {
	case "100g", "kg", "g", "unit", "package":
		return true
	}
	return false
}

// EffectivePrice is the sale price when present and positive, else the regular price.
func (in Input) EffectivePrice() float64 {
	if in.SalePrice != nil && *in.SalePrice > 0 {
		return *in.SalePrice
	}
	return in.RegularPrice
}

// Normalize returns the price per 100 grams. ok is false when the quote
// cannot be compared: missing price, unit or quantity, non-positive
// quantity, unknown unit, or a per-unit quote without a unit weight.
func Normalize(in Input) (per100g float64, ok bool) {
	price := in.EffectivePrice()
	if price == 0 || !finite(price) || in.Unit == "" {
		return 0, false
	}
	if !finite(in.Quantity) || in.Quantity <= 0 {
		return 0, false
	}

	switch strings.ToLower(in.Unit) {
	case "100g":
		return price / in.Quantity, true
	case "kg":
		return (price / in.Quantity) / 10, true
	case "g":
		return (price / in.Quantity) * 100, true
	case "unit", "package":
		if in.DefaultWeightGrams == nil || *in.DefaultWeightGrams <= 0 {
			return 0, false
		}
		totalGrams := in.Quantity * *in.DefaultWeightGrams
		if totalGrams == 0 {
			return 0, false
		}
		return (price / totalGrams) * 100, true
	default:
		return 0, false
	}
}

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	r, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return r
}

// Per100g normalizes in and rounds the result for a response payload.
// It returns nil when the price is not computable.
func Per100g(in Input) *float64 {
	v, ok := Normalize(in)
	if !ok {
		return nil
	}
	r := Round2(v)
	return &r
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
