package landuse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclab/splitrate/internal/model"
)

func isParkingUse(p *model.Parcel) bool {
	return strings.Contains(strings.ToUpper(p.PropertyUse), "PARKING")
}

func TestAnalyzeParking(t *testing.T) {
	t.Parallel()

	parcels := []model.Parcel{
		{ID: "p1", PropertyUse: "Parking Lot", LandValue: 200000, ImprovementValue: 10000},
		{ID: "p2", PropertyUse: "Parking Lot", LandValue: 60000, ImprovementValue: 30000},
		{ID: "p3", PropertyUse: "Parking Garage - Parking", LandValue: 20000},
		{ID: "o1", PropertyUse: "Office", LandValue: 100000, ImprovementValue: 400000},
	}

	pa, err := AnalyzeParking(parcels, isParkingUse, DefaultParkingOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, pa.Lots)
	assert.InDelta(t, 280000, pa.TotalLandValue, 1e-9)
	assert.InDelta(t, 40000, pa.TotalImprovementValue, 1e-9)

	// p1 ratio 0.05, p2 ratio 0.5, p3 ratio 0.
	assert.InDelta(t, (0.05+0.5+0)/3, pa.MeanImprovementRatio, 1e-9)

	// Only p1 clears both the $50k floor and the 10% ratio ceiling.
	assert.Equal(t, 1, pa.UnderutilizedCount)
	assert.InDelta(t, 200000, pa.UnderutilizedValue, 1e-9)

	require.NotNil(t, pa.Potential)
	cityRatio := 440000.0 / 380000.0
	assert.InDelta(t, cityRatio, pa.Potential.CitywideMeanRatio, 1e-9)
	assert.InDelta(t, 200000*cityRatio, pa.Potential.PotentialImprovementValue, 1e-9)
	assert.InDelta(t, 200000*cityRatio-10000, pa.Potential.UntappedValue, 1e-9)

	// Tiers in ascending value order, only populated tiers present.
	require.Len(t, pa.ByTier, 3)
	assert.Equal(t, "<$25k", pa.ByTier[0].Tier)
	assert.Equal(t, "$50k-$100k", pa.ByTier[1].Tier)
	assert.Equal(t, "$100k-$250k", pa.ByTier[2].Tier)
	assert.Equal(t, 1, pa.ByTier[2].Count)
	assert.InDelta(t, 200000, pa.ByTier[2].MeanValue, 1e-9)
}

func TestAnalyzeParkingNoLots(t *testing.T) {
	t.Parallel()

	parcels := []model.Parcel{
		{ID: "o1", PropertyUse: "Office", LandValue: 100000, ImprovementValue: 400000},
	}
	_, err := AnalyzeParking(parcels, isParkingUse, DefaultParkingOptions())
	assert.Error(t, err)
}

func TestTierLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value float64
		want  string
	}{
		{0, "<$25k"},
		{25000, "<$25k"},
		{25001, "$25k-$50k"},
		{75000, "$50k-$100k"},
		{250000, "$100k-$250k"},
		{1000000, ">$250k"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tierLabel(tt.value), "value %.0f", tt.value)
	}
}
