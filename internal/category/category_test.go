package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		label       string
		fullyExempt bool
		want        string
	}{
		{"single family", "Single Family Residence", false, SingleFamily},
		{"condo", "Condominium Unit", false, Condominium},
		{"apartment", "Apartment Building Over 6 Units", false, MultiFamily},
		{"vacant beats commercial", "Vacant Land - Commercial Zoned", false, VacantLand},
		{"parking", "Trans - Parking", false, Parking},
		{"office", "Office Building", false, Office},
		{"retail", "Retail Store Front", false, Retail},
		{"industrial", "Industrial Warehouse", false, Industrial},
		{"farm", "Farm Homestead", false, Agricultural},
		{"exempt fallback", "Municipal Building", true, OtherExempt},
		{"commercial fallback", "Commercial Mixed Use", false, OtherCommercial},
		{"hotel fallback", "Hotel", false, OtherCommercial},
		{"residential fallback", "Special Residential Structure", false, OtherResidential},
		{"unknown", "Railroad Right of Way", false, Other},
		{"case insensitive", "single family", false, SingleFamily},
		{"empty label exempt", "", true, OtherExempt},
		{"empty label", "", false, Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Categorize(tt.label, tt.fullyExempt))
		})
	}
}

func TestCategorizeDeterministic(t *testing.T) {
	t.Parallel()

	// Same label, same answer, regardless of call order.
	labels := []string{"Vacant Land", "Office Building", "Condo Tower", "Hotel"}
	first := make([]string, len(labels))
	for i, l := range labels {
		first[i] = Categorize(l, false)
	}
	for i := len(labels) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], Categorize(labels[i], false))
	}
}
