package services

import (
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/pricing"
)

// normalizer runs the unit price normalizer over stored reports and logs
// quotes in units it cannot convert.
type normalizer struct {
	log *zap.Logger
}

func newNormalizer(log *zap.Logger) normalizer {
	if log == nil {
		log = zap.NewNop()
	}
	return normalizer{log: log}
}

func (n normalizer) normalize(in pricing.Input) (float64, bool) {
	v, ok := pricing.Normalize(in)
	if !ok {
		n.unknownUnit(in.Unit)
	}
	return v, ok
}

// per100g is normalize rounded for a response payload, nil when not computable.
func (n normalizer) per100g(in pricing.Input) *float64 {
	v := pricing.Per100g(in)
	if v == nil {
		n.unknownUnit(in.Unit)
	}
	return v
}

func (n normalizer) unknownUnit(unit string) {
	if unit != "" && !pricing.KnownUnit(unit) {
		n.log.Debug("price unit cannot be normalized", zap.String("unit", unit))
	}
}

// decorate sets the report's comparable price.
func (n normalizer) decorate(r *models.PriceReport) {
	r.CalculatedPricePer100g = n.per100g(reportPricing(r))
}

// reportPricing extracts the normalizer input from a joined report row.
func reportPricing(r *models.PriceReport) pricing.Input {
	return pricing.Input{
		RegularPrice:       r.RegularPrice,
		SalePrice:          r.SalePrice,
		Unit:               r.UnitForPrice,
		Quantity:           r.QuantityForPrice,
		DefaultWeightGrams: r.DefaultWeightPerUnitGrams,
	}
}
