// Package category maps assessor property-use labels to the coarse property
// categories used in impact tables.
package category

import "strings"

// Category labels.
const (
	SingleFamily     = "Single Family"
	Condominium      = "Condominium"
	MultiFamily      = "Multi-Family"
	VacantLand       = "Vacant Land"
	Parking          = "Parking"
	Office           = "Office"
	Retail           = "Retail"
	Industrial       = "Industrial"
	Agricultural     = "Agricultural"
	OtherExempt      = "Other Exempt"
	OtherCommercial  = "Other Commercial"
	OtherResidential = "Other Residential"
	Other            = "Other"
)

// keywordRule maps a label substring to a category. Rules are checked in
// order; the first match wins.
type keywordRule struct {
	keyword  string
	category string
}

// rules are ordered by priority: specific use types before broad ones, so
// "Vacant Land - Commercial" classifies as vacant, not commercial.
var rules = []keywordRule{
	{"VACANT", VacantLand},
	{"PARKING", Parking},
	{"GARAGE", Parking},
	{"SINGLE FAMILY", SingleFamily},
	{"SINGLE-FAMILY", SingleFamily},
	{"CONDO", Condominium},
	{"APARTMENT", MultiFamily},
	{"MULTI-FAMILY", MultiFamily},
	{"MULTIFAMILY", MultiFamily},
	{"TWO TO SIX", MultiFamily},
	{"OFFICE", Office},
	{"RETAIL", Retail},
	{"STORE", Retail},
	{"SHOPPING", Retail},
	{"INDUSTRIAL", Industrial},
	{"WAREHOUSE", Industrial},
	{"MANUFACTUR", Industrial},
	{"FARM", Agricultural},
	{"AGRICULT", Agricultural},
}

// fallback hints used when no priority rule matches.
var (
	commercialHints  = []string{"COMMERCIAL", "HOTEL", "MOTEL", "BANK", "RESTAURANT", "THEATER"}
	residentialHints = []string{"RESIDENTIAL", "RESIDENCE", "DWELLING", "MOBILE HOME", "ROOMING"}
)

// Categorize returns the category for an assessor property-use label.
// Lookup order: the fixed keyword priority list, then the exempt flag, then
// commercial and residential hints, then Other.
func Categorize(propertyUse string, fullyExempt bool) string {
	label := strings.ToUpper(strings.TrimSpace(propertyUse))

	for _, r := range rules {
		if strings.Contains(label, r.keyword) {
			return r.category
		}
	}

	if fullyExempt {
		return OtherExempt
	}
	for _, h := range commercialHints {
		if strings.Contains(label, h) {
			return OtherCommercial
		}
	}
	for _, h := range residentialHints {
		if strings.Contains(label, h) {
			return OtherResidential
		}
	}
	return Other
}
