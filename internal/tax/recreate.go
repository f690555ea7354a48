package tax

import (
	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/model"
)

// CurrentTaxResult holds recreated present-law liabilities for a parcel set.
type CurrentTaxResult struct {
	// Taxes is parallel to the input parcel slice.
	Taxes []float64
	// Total is the summed per-parcel revenue.
	Total float64
	// AggregateTotal recomputes revenue from aggregated taxable value first,
	// then applies the rate once. No per-parcel rounding is applied, so it
	// must equal Total exactly; callers use it to reconcile.
	AggregateTotal float64
}

// RecreateCurrentTax computes each parcel's present-law liability from the
// current millage rate. Fully exempt parcels owe zero; otherwise the parcel
// owes max(0, taxable value - exemption) * rate / 1000.
//
// A negative rate or negative parcel value fails with model.ErrMalformedInput;
// these indicate upstream data corruption and are never clamped.
func RecreateCurrentTax(parcels []model.Parcel, millage float64) (*CurrentTaxResult, error) {
	if millage < 0 {
		return nil, eris.Wrapf(model.ErrMalformedInput, "tax: negative millage rate %.4f", millage)
	}
	if err := model.ValidateParcels(parcels); err != nil {
		return nil, err
	}

	res := &CurrentTaxResult{Taxes: make([]float64, len(parcels))}
	var aggregateBase float64
	for i := range parcels {
		p := &parcels[i]
		if p.FullyExempt {
			continue
		}
		base := max(0, p.TaxableValue()-p.ExemptionAmount)
		t := base * millage / 1000
		res.Taxes[i] = t
		res.Total += t
		aggregateBase += base
	}
	res.AggregateTotal = aggregateBase * millage / 1000

	return res, nil
}
