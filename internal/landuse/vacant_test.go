package landuse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclab/splitrate/internal/model"
)

func isVacantUse(p *model.Parcel) bool {
	return strings.Contains(strings.ToUpper(p.PropertyUse), "VACANT")
}

func TestAnalyzeVacant(t *testing.T) {
	t.Parallel()

	parcels := []model.Parcel{
		{ID: "v1", PropertyUse: "Vacant Land", LandValue: 100000, TaxDistrict: "D1", Owner: "ACME"},
		{ID: "v2", PropertyUse: "Vacant Land", LandValue: 50000, TaxDistrict: "D1", Owner: "ACME"},
		{ID: "v3", PropertyUse: "Vacant Land", LandValue: 30000, TaxDistrict: "D2", Owner: "SMITH"},
		{ID: "v4", PropertyUse: "Vacant Land", LandValue: 20000, TaxDistrict: "D2", Owner: "JONES"},
		{ID: "h1", PropertyUse: "Single Family", LandValue: 80000, ImprovementValue: 220000},
		{ID: "h2", PropertyUse: "Office", LandValue: 120000, ImprovementValue: 600000},
	}

	va, err := AnalyzeVacant(parcels, isVacantUse)
	require.NoError(t, err)

	assert.Equal(t, 4, va.Parcels)
	assert.InDelta(t, 200000, va.TotalLandValue, 1e-9)
	assert.InDelta(t, 50000, va.MeanLandValue, 1e-9)
	assert.InDelta(t, 40000, va.MedianLandValue, 1e-9)
	// City land = 200000 vacant + 80000 + 120000 improved.
	assert.InDelta(t, 50.0, va.ShareOfCityLand, 1e-9)

	require.Len(t, va.ByDistrict, 2)
	assert.Equal(t, "D1", va.ByDistrict[0].Key)
	assert.Equal(t, 2, va.ByDistrict[0].Count)
	assert.InDelta(t, 150000, va.ByDistrict[0].TotalValue, 1e-9)
	assert.Equal(t, "D2", va.ByDistrict[1].Key)
	assert.InDelta(t, 50000, va.ByDistrict[1].TotalValue, 1e-9)

	require.NotNil(t, va.Concentration)
	assert.Equal(t, 3, va.Concentration.Owners)
	// Three owners: top 5% and top 10% both round up to one owner (ACME, 150k).
	assert.InDelta(t, 150000, va.Concentration.Top5PctValue, 1e-9)
	assert.InDelta(t, 75.0, va.Concentration.Top5PctShare, 1e-9)
	assert.InDelta(t, 150000, va.Concentration.Top10Value, 1e-9)
}

func TestAnalyzeVacantExemptionAdjusted(t *testing.T) {
	t.Parallel()

	// Exemption spills into land after improvements are consumed.
	parcels := []model.Parcel{
		{ID: "v1", PropertyUse: "Vacant Land", LandValue: 100000, ExemptionAmount: 40000},
		{ID: "v2", PropertyUse: "Vacant Land", LandValue: 60000, FullyExempt: true},
	}

	va, err := AnalyzeVacant(parcels, isVacantUse)
	require.NoError(t, err)
	assert.Equal(t, 2, va.Parcels)
	// 60000 from v1 after exemption; v2 contributes nothing.
	assert.InDelta(t, 60000, va.TotalLandValue, 1e-9)
}

func TestAnalyzeVacantEmpty(t *testing.T) {
	t.Parallel()

	parcels := []model.Parcel{
		{ID: "h1", PropertyUse: "Single Family", LandValue: 80000, ImprovementValue: 220000},
	}
	_, err := AnalyzeVacant(parcels, isVacantUse)
	assert.Error(t, err)
}

func TestMedian(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 3.0, median([]float64{3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
}
