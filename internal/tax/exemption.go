// Package tax implements the split-rate tax engine: exemption allocation,
// current-tax recreation, the revenue-neutral rate solve, and per-parcel
// application of the solved rates.
package tax

import "github.com/civiclab/splitrate/internal/model"

// AllocateExemption splits a parcel's total exemption between building and
// land. Exemptions apply to the building first; any remainder spills over
// onto land. The two parts always sum exactly to totalExemption.
func AllocateExemption(improvementValue, totalExemption float64) (building, land float64) {
	building = min(totalExemption, improvementValue)
	land = totalExemption - building
	return building, land
}

// TaxableParts returns the parcel's post-exemption taxable building and land
// values, floored at zero. A fully exempt parcel contributes zero for both.
func TaxableParts(p *model.Parcel) (building, land float64) {
	if p.FullyExempt {
		return 0, 0
	}
	bx, lx := AllocateExemption(p.ImprovementValue, p.ExemptionAmount)
	building = max(0, p.ImprovementValue-bx)
	land = max(0, p.LandValue-lx)
	return building, land
}
