package landuse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclab/splitrate/internal/model"
)

func TestDevelopmentPenalty(t *testing.T) {
	t.Parallel()

	parcels := []model.Parcel{
		{ID: "a", LandValue: 100000, ImprovementValue: 600000},
		{ID: "b", LandValue: 100000, ImprovementValue: 400000},
		{ID: "c", LandValue: 50000},
	}

	res, err := DevelopmentPenalty(parcels, DefaultPenaltyOptions())
	require.NoError(t, err)

	assert.InDelta(t, 1000000, res.TotalImprovementValue, 1e-9)
	assert.InDelta(t, 12000, res.AnnualImprovementTax, 1e-9)

	// Annuity factor for 5% over 30 years.
	assert.InDelta(t, 12000*15.372451, res.NPVImprovementTax, 1.0)
	assert.InDelta(t, 150*1200, res.UnitConstructionCost, 1e-9)
	assert.InDelta(t, res.NPVImprovementTax/180000, res.EquivalentLostUnits, 1e-9)

	// Two improved parcels at 1.5 units each.
	assert.InDelta(t, 3.0, res.EstimatedCurrentUnits, 1e-9)
	assert.InDelta(t, res.EquivalentLostUnits/3*100, res.UnitsLostPct, 1e-9)
}

func TestDevelopmentPenaltyUndiscounted(t *testing.T) {
	t.Parallel()

	parcels := []model.Parcel{
		{ID: "a", ImprovementValue: 500000},
	}
	opts := DefaultPenaltyOptions()
	opts.DiscountRate = 0
	opts.Years = 10

	res, err := DevelopmentPenalty(parcels, opts)
	require.NoError(t, err)

	// r = 0 collapses the annuity to a straight sum.
	assert.InDelta(t, 500000*0.012*10, res.NPVImprovementTax, 1e-9)
}

func TestDevelopmentPenaltyErrors(t *testing.T) {
	t.Parallel()

	improved := []model.Parcel{{ID: "a", ImprovementValue: 100000}}

	tests := []struct {
		name    string
		parcels []model.Parcel
		mutate  func(*PenaltyOptions)
	}{
		{"negative millage", improved, func(o *PenaltyOptions) { o.MillageRate = -0.01 }},
		{"zero horizon", improved, func(o *PenaltyOptions) { o.Years = 0 }},
		{"zero unit size", improved, func(o *PenaltyOptions) { o.UnitSizeSqFt = 0 }},
		{"no improvements", []model.Parcel{{ID: "a", LandValue: 50000}}, func(o *PenaltyOptions) {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := DefaultPenaltyOptions()
			tt.mutate(&opts)
			_, err := DevelopmentPenalty(tt.parcels, opts)
			assert.Error(t, err)
		})
	}
}
