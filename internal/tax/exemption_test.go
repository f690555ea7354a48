package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civiclab/splitrate/internal/model"
)

func TestAllocateExemption(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		improvement  float64
		exemption    float64
		wantBuilding float64
		wantLand     float64
	}{
		{"no exemption", 400000, 0, 0, 0},
		{"exemption fits in building", 400000, 100000, 100000, 0},
		{"exemption equals building", 100000, 100000, 100000, 0},
		{"spillover onto land", 100000, 150000, 100000, 50000},
		{"zero improvement: all on land", 0, 80000, 0, 80000},
		{"exemption exceeds parcel value", 50000, 500000, 50000, 450000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			building, land := AllocateExemption(tt.improvement, tt.exemption)
			assert.Equal(t, tt.wantBuilding, building)
			assert.Equal(t, tt.wantLand, land)
			// The split always sums exactly to the stated total.
			assert.Equal(t, tt.exemption, building+land)
		})
	}
}

func TestAllocateExemptionSumInvariant(t *testing.T) {
	t.Parallel()

	// Exact-sum invariant over a sweep of awkward values, including ones
	// that are not exactly representable.
	improvements := []float64{0, 0.01, 1, 333.33, 99999.99, 1e7, 123456.789}
	exemptions := []float64{0, 0.01, 10, 333.33, 100000, 1e7, 987654.321}

	for _, imp := range improvements {
		for _, ex := range exemptions {
			building, land := AllocateExemption(imp, ex)
			assert.Equal(t, ex, building+land, "imp=%v ex=%v", imp, ex)
			assert.GreaterOrEqual(t, building, 0.0)
			assert.GreaterOrEqual(t, land, 0.0)
			if imp >= ex {
				assert.Zero(t, land, "no spillover when building covers exemption")
			}
		}
	}
}

func TestTaxableParts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		parcel       model.Parcel
		wantBuilding float64
		wantLand     float64
	}{
		{
			name:         "no exemption",
			parcel:       model.Parcel{LandValue: 100000, ImprovementValue: 400000},
			wantBuilding: 400000,
			wantLand:     100000,
		},
		{
			name:         "partial exemption reduces building first",
			parcel:       model.Parcel{LandValue: 100000, ImprovementValue: 400000, ExemptionAmount: 50000},
			wantBuilding: 350000,
			wantLand:     100000,
		},
		{
			name:         "spillover reduces land",
			parcel:       model.Parcel{LandValue: 100000, ImprovementValue: 40000, ExemptionAmount: 60000},
			wantBuilding: 0,
			wantLand:     80000,
		},
		{
			name:         "exemption exceeds total value floors at zero",
			parcel:       model.Parcel{LandValue: 10000, ImprovementValue: 20000, ExemptionAmount: 100000},
			wantBuilding: 0,
			wantLand:     0,
		},
		{
			name:         "fully exempt contributes nothing",
			parcel:       model.Parcel{LandValue: 100000, ImprovementValue: 400000, FullyExempt: true},
			wantBuilding: 0,
			wantLand:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			building, land := TaxableParts(&tt.parcel)
			assert.Equal(t, tt.wantBuilding, building)
			assert.Equal(t, tt.wantLand, land)
		})
	}
}
