package landuse

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/model"
)

// PenaltyOptions configures the development tax penalty estimate.
type PenaltyOptions struct {
	// MillageRate is the effective tax rate on improvements, as a decimal
	// (0.012 for 1.2%), not per-$1000.
	MillageRate float64
	// Years is the NPV horizon.
	Years int
	// DiscountRate as a decimal; zero means undiscounted.
	DiscountRate float64
	// ConstructionCostPerSqFt and UnitSizeSqFt describe a typical new unit.
	ConstructionCostPerSqFt float64
	UnitSizeSqFt            float64
}

// DefaultPenaltyOptions mirrors the reference analysis parameters.
func DefaultPenaltyOptions() PenaltyOptions {
	return PenaltyOptions{
		MillageRate:             0.012,
		Years:                   30,
		DiscountRate:            0.05,
		ConstructionCostPerSqFt: 150,
		UnitSizeSqFt:            1200,
	}
}

// PenaltyResult quantifies building taxes as a development penalty.
type PenaltyResult struct {
	TotalImprovementValue float64 `json:"total_improvement_value"`
	AnnualImprovementTax  float64 `json:"annual_improvement_tax"`
	NPVImprovementTax     float64 `json:"npv_improvement_tax"`
	// NPVAsPctOfConstruction expresses the tax NPV against current
	// improvement value as a construction-cost proxy.
	NPVAsPctOfConstruction float64 `json:"npv_as_pct_of_construction"`
	UnitConstructionCost   float64 `json:"unit_construction_cost"`
	EquivalentLostUnits    float64 `json:"equivalent_lost_units"`
	EstimatedCurrentUnits  float64 `json:"estimated_current_units"`
	UnitsLostPct           float64 `json:"units_lost_pct"`
}

// unitsPerImprovedParcel is a rough stock estimate: a mix of single and
// multi-family averaging 1.5 dwelling units per improved parcel.
const unitsPerImprovedParcel = 1.5

// DevelopmentPenalty computes the present value of building taxes over the
// horizon and converts it into equivalent forgone housing units.
func DevelopmentPenalty(parcels []model.Parcel, opts PenaltyOptions) (*PenaltyResult, error) {
	if opts.MillageRate < 0 {
		return nil, eris.Wrapf(model.ErrMalformedInput, "landuse: negative millage rate %.4f", opts.MillageRate)
	}
	if opts.Years <= 0 {
		return nil, eris.Errorf("landuse: horizon must be positive, got %d years", opts.Years)
	}
	if opts.ConstructionCostPerSqFt <= 0 || opts.UnitSizeSqFt <= 0 {
		return nil, eris.New("landuse: construction cost and unit size must be positive")
	}

	var totalImprovement float64
	var improvedParcels int
	for i := range parcels {
		totalImprovement += parcels[i].ImprovementValue
		if parcels[i].ImprovementValue > 0 {
			improvedParcels++
		}
	}
	if totalImprovement <= 0 {
		return nil, eris.New("landuse: no improvement value in parcel set")
	}

	res := &PenaltyResult{
		TotalImprovementValue: totalImprovement,
		AnnualImprovementTax:  totalImprovement * opts.MillageRate,
		UnitConstructionCost:  opts.ConstructionCostPerSqFt * opts.UnitSizeSqFt,
	}

	// Annuity NPV: PMT * (1 - (1+r)^-n) / r; undiscounted when r = 0.
	if opts.DiscountRate == 0 {
		res.NPVImprovementTax = res.AnnualImprovementTax * float64(opts.Years)
	} else {
		factor := (1 - math.Pow(1+opts.DiscountRate, -float64(opts.Years))) / opts.DiscountRate
		res.NPVImprovementTax = res.AnnualImprovementTax * factor
	}

	res.NPVAsPctOfConstruction = res.NPVImprovementTax / totalImprovement * 100
	res.EquivalentLostUnits = res.NPVImprovementTax / res.UnitConstructionCost
	res.EstimatedCurrentUnits = float64(improvedParcels) * unitsPerImprovedParcel
	if res.EstimatedCurrentUnits > 0 {
		res.UnitsLostPct = res.EquivalentLostUnits / res.EstimatedCurrentUnits * 100
	}

	return res, nil
}
