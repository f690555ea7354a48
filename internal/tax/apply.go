package tax

import (
	"github.com/civiclab/splitrate/internal/model"
)

// ParcelTax holds all derived tax columns for one parcel.
type ParcelTax struct {
	ParcelID          string   `csv:"parcel_id" json:"parcel_id"`
	BuildingExemption float64  `csv:"building_exemption" json:"building_exemption"`
	LandExemption     float64  `csv:"land_exemption" json:"land_exemption"`
	TaxableBuilding   float64  `csv:"taxable_building" json:"taxable_building"`
	TaxableLand       float64  `csv:"taxable_land" json:"taxable_land"`
	CurrentTax        float64  `csv:"current_tax" json:"current_tax"`
	NewTax            float64  `csv:"new_tax" json:"new_tax"`
	Change            float64  `csv:"tax_change" json:"tax_change"`
	// PercentChange is nil when the parcel owes no current tax; percentage
	// change is undefined there, not zero.
	PercentChange *float64 `csv:"percent_change,omitempty" json:"percent_change,omitempty"`
}

// Apply computes each parcel's liability under the solved rates along with
// the change from its recreated current tax. Pure function of its inputs:
// applying it twice with the same rates yields identical results.
//
// currentTaxes must be parallel to parcels, as produced by RecreateCurrentTax.
func Apply(parcels []model.Parcel, currentTaxes []float64, rates Rates) []ParcelTax {
	out := make([]ParcelTax, len(parcels))
	for i := range parcels {
		p := &parcels[i]
		pt := &out[i]
		pt.ParcelID = p.ID
		pt.BuildingExemption, pt.LandExemption = AllocateExemption(p.ImprovementValue, p.ExemptionAmount)
		pt.TaxableBuilding, pt.TaxableLand = TaxableParts(p)
		pt.CurrentTax = currentTaxes[i]

		if !p.FullyExempt {
			pt.NewTax = pt.TaxableLand*rates.Land/1000 + pt.TaxableBuilding*rates.Building/1000
		}
		pt.Change = pt.NewTax - pt.CurrentTax
		if pt.CurrentTax != 0 {
			pct := pt.Change / pt.CurrentTax * 100
			pt.PercentChange = &pct
		}
	}
	return out
}

// AggregateTaxable sums post-exemption taxable building and land value across
// the parcel set. These aggregates feed the solver.
func AggregateTaxable(parcels []model.Parcel) (building, land float64) {
	for i := range parcels {
		b, l := TaxableParts(&parcels[i])
		building += b
		land += l
	}
	return building, land
}
