// Package report renders scenario and land-use results as plain text for the
// CLI. Dollar figures are grouped for readability; the underlying values are
// never rounded before display.
package report

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/civiclab/splitrate/internal/impact"
	"github.com/civiclab/splitrate/internal/landuse"
	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/tax"
)

// Renderer writes formatted report sections to a single destination.
type Renderer struct {
	w io.Writer
	p *message.Printer
}

func New(w io.Writer) *Renderer {
	return &Renderer{w: w, p: message.NewPrinter(language.English)}
}

func (r *Renderer) printf(format string, args ...any) {
	_, _ = r.p.Fprintf(r.w, format, args...)
}

// Scenario prints the solved rates and the revenue reconciliation. A non-nil
// warning is always shown; verification mismatches must not pass silently.
func (r *Renderer) Scenario(s model.Scenario, warn *tax.ReconciliationMismatch) {
	r.printf("Split-rate scenario (land:building ratio %.1f:1)\n", s.Ratio)
	r.printf("  Building millage:  %.4f\n", s.BuildingMillage)
	r.printf("  Land millage:      %.4f\n", s.LandMillage)
	r.printf("  Current revenue:   $%.0f\n", s.CurrentRevenue)
	r.printf("  Scenario revenue:  $%.0f\n", s.NewRevenue)
	if warn != nil {
		r.printf("  WARNING: revenue mismatch of $%.2f (relative %.2e)\n",
			warn.Delta, warn.Relative)
	} else {
		r.printf("  Revenue neutral within tolerance.\n")
	}
}

// Impact prints one grouped impact table.
func (r *Renderer) Impact(title string, stats []impact.GroupStats) {
	r.printf("\n%s\n", title)
	r.printf("  %-24s %8s %14s %14s %10s %10s\n",
		"Group", "Parcels", "Mean change", "Median change", "Mean %", "Share up")
	for _, gs := range stats {
		pct := "n/a"
		if gs.MeanPercentChange != nil {
			pct = r.p.Sprintf("%.1f%%", *gs.MeanPercentChange)
		}
		r.printf("  %-24s %8d %14s %14s %10s %9.0f%%\n",
			gs.Group, gs.Count,
			r.p.Sprintf("$%.0f", gs.MeanChange),
			r.p.Sprintf("$%.0f", gs.MedianChange),
			pct, gs.ShareIncreased*100)
	}
}

// Vacant prints the vacant-land analysis.
func (r *Renderer) Vacant(va *landuse.VacantAnalysis) {
	r.printf("\nVacant land\n")
	r.printf("  Parcels:            %d\n", va.Parcels)
	r.printf("  Total land value:   $%.0f (%.1f%% of city land value)\n",
		va.TotalLandValue, va.ShareOfCityLand)
	r.printf("  Mean / median:      $%.0f / $%.0f\n", va.MeanLandValue, va.MedianLandValue)
	if len(va.ByDistrict) > 0 {
		r.printf("  By district:\n")
		for _, gv := range va.ByDistrict {
			r.printf("    %-20s %6d parcels  $%.0f\n", gv.Key, gv.Count, gv.TotalValue)
		}
	}
	if va.Concentration != nil {
		c := va.Concentration
		r.printf("  Ownership: %d owners; top 5%% hold $%.0f (%.1f%%), top 10%% hold $%.0f (%.1f%%)\n",
			c.Owners, c.Top5PctValue, c.Top5PctShare, c.Top10Value, c.Top10Share)
	}
}

// Parking prints the parking-lot efficiency analysis.
func (r *Renderer) Parking(pa *landuse.ParkingAnalysis) {
	r.printf("\nParking lots\n")
	r.printf("  Lots:               %d\n", pa.Lots)
	r.printf("  Total land value:   $%.0f\n", pa.TotalLandValue)
	r.printf("  Mean improvement ratio: %.2f\n", pa.MeanImprovementRatio)
	r.printf("  Underutilized:      %d lots, $%.0f land value (%s)\n",
		pa.UnderutilizedCount, pa.UnderutilizedValue, pa.Criteria)
	if pa.Potential != nil {
		r.printf("  Development potential: $%.0f untapped at the citywide ratio of %.2f\n",
			pa.Potential.UntappedValue, pa.Potential.CitywideMeanRatio)
	}
	if len(pa.ByTier) > 0 {
		r.printf("  By land-value tier:\n")
		for _, ts := range pa.ByTier {
			r.printf("    %-12s %6d lots  $%.0f total  ratio %.2f\n",
				ts.Tier, ts.Count, ts.TotalValue, ts.MeanImprRatio)
		}
	}
}

// ShareBands prints land value by improvement-share band.
func (r *Renderer) ShareBands(sb *landuse.ShareBandsResult) {
	r.printf("\nLand value by improvement share\n")
	r.printf("  Total non-exempt land value: $%.0f\n", sb.TotalLandValue)
	for _, b := range sb.Bands {
		r.printf("  %-22s %8d parcels  $%.0f (%.1f%%)\n",
			b.Band, b.Count, b.LandValue, b.ShareOfPct)
	}
}

// Penalty prints the development tax penalty estimate.
func (r *Renderer) Penalty(pr *landuse.PenaltyResult) {
	r.printf("\nDevelopment tax penalty\n")
	r.printf("  Improvement value:  $%.0f\n", pr.TotalImprovementValue)
	r.printf("  Annual tax:         $%.0f\n", pr.AnnualImprovementTax)
	r.printf("  NPV of tax:         $%.0f (%.1f%% of construction value)\n",
		pr.NPVImprovementTax, pr.NPVAsPctOfConstruction)
	r.printf("  Equivalent units:   %.0f forgone of ~%.0f existing (%.1f%%)\n",
		pr.EquivalentLostUnits, pr.EstimatedCurrentUnits, pr.UnitsLostPct)
}
