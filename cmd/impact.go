package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/export"
	"github.com/civiclab/splitrate/internal/impact"
	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/report"
	"github.com/civiclab/splitrate/internal/tax"
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Show who pays more and who pays less under the scenario",
	Long: `Runs the scenario and aggregates per-parcel tax changes by property
category, tax district, township, income quintile, and minority share
(quintiles plus fixed bands). Income and minority tables need a
demographics-enriched snapshot.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scenario"); err != nil {
			return err
		}

		csvPath, _ := cmd.Flags().GetString("csv")
		ratio, _ := cmd.Flags().GetFloat64("ratio")
		if ratio == 0 {
			ratio = cfg.Scenario.Ratio
		}

		parcels, err := loadInputParcels(ctx, csvPath)
		if err != nil {
			return err
		}

		res, err := tax.RunScenario(parcels, cfg.Scenario.CurrentMillage, ratio)
		if err != nil {
			return err
		}

		sheets, err := buildImpactTables(parcels, res.Parcels)
		if err != nil {
			return err
		}

		r := report.New(os.Stdout)
		r.Scenario(res.Scenario, res.Warning)
		for _, sd := range sheets {
			r.Impact(sd.Name, sd.Stats)
		}

		if xlsxOut, _ := cmd.Flags().GetString("xlsx"); xlsxOut != "" {
			if err := export.WriteSummaryXLSX(xlsxOut, res.Scenario, sheets); err != nil {
				return err
			}
		}
		return nil
	},
}

// buildImpactTables computes every grouping the parcel set supports. The
// demographic tables are skipped, not failed, when no parcel carries
// demographics or income variation is insufficient for quintiles.
func buildImpactTables(parcels []model.Parcel, taxes []tax.ParcelTax) ([]export.SheetData, error) {
	byCat, err := impact.Summarize(impactRows(parcels, taxes, byCategory))
	if err != nil {
		return nil, eris.Wrap(err, "impact: by category")
	}
	sheets := []export.SheetData{{Name: "By Category", Stats: byCat}}

	districtRows := impactRows(parcels, taxes, func(p *model.Parcel) string { return p.TaxDistrict })
	if hasGroups(districtRows) {
		byDistrict, err := impact.Summarize(keptRows(districtRows))
		if err != nil {
			return nil, eris.Wrap(err, "impact: by district")
		}
		sheets = append(sheets, export.SheetData{Name: "By District", Stats: byDistrict})
	}

	townshipRows := impactRows(parcels, taxes, func(p *model.Parcel) string { return p.Township })
	if hasGroups(townshipRows) {
		byTownship, err := impact.Summarize(keptRows(townshipRows))
		if err != nil {
			return nil, eris.Wrap(err, "impact: by township")
		}
		sheets = append(sheets, export.SheetData{Name: "By Township", Stats: byTownship})
	}

	incomes := make([]*float64, len(parcels))
	minorityPcts := make([]*float64, len(parcels))
	minority := make([]impact.Row, 0, len(parcels))
	for i := range parcels {
		d := parcels[i].Demographics
		if d == nil {
			continue
		}
		if d.MedianIncome > 0 {
			incomes[i] = &d.MedianIncome
		}
		minorityPcts[i] = &d.MinorityPct
		minority = append(minority, impact.Row{
			Group:         minorityBand(d.MinorityPct),
			Change:        taxes[i].Change,
			PercentChange: taxes[i].PercentChange,
		})
	}

	rows := impactRows(parcels, taxes, func(*model.Parcel) string { return "" })
	byIncome, err := impact.SummarizeByQuintile(incomes, rows)
	switch {
	case err == nil:
		sheets = append(sheets, export.SheetData{Name: "By Income Quintile", Stats: byIncome})
	case eris.Is(err, impact.ErrInsufficientVariation):
		zap.L().Warn("skipping income quintile table", zap.Error(err))
	default:
		return nil, eris.Wrap(err, "impact: by income")
	}

	byMinorityQ, err := impact.SummarizeByQuintile(minorityPcts, rows)
	switch {
	case err == nil:
		sheets = append(sheets, export.SheetData{Name: "By Minority Quintile", Stats: byMinorityQ})
	case eris.Is(err, impact.ErrInsufficientVariation):
		zap.L().Warn("skipping minority quintile table", zap.Error(err))
	default:
		return nil, eris.Wrap(err, "impact: by minority quintile")
	}

	if len(minority) > 0 {
		byMinority, err := impact.Summarize(minority)
		if err != nil {
			return nil, eris.Wrap(err, "impact: by minority share")
		}
		sheets = append(sheets, export.SheetData{Name: "By Minority Share", Stats: byMinority})
	}

	return sheets, nil
}

func minorityBand(pct float64) string {
	switch {
	case pct >= 75:
		return ">=75% minority"
	case pct >= 50:
		return "50-75% minority"
	case pct >= 25:
		return "25-50% minority"
	default:
		return "<25% minority"
	}
}

// hasGroups reports whether any row carries a non-empty group key.
func hasGroups(rows []impact.Row) bool {
	for _, r := range rows {
		if r.Group != "" {
			return true
		}
	}
	return false
}

// keptRows drops rows with an empty group key.
func keptRows(rows []impact.Row) []impact.Row {
	kept := rows[:0:0]
	for _, r := range rows {
		if r.Group != "" {
			kept = append(kept, r)
		}
	}
	return kept
}

func init() {
	impactCmd.Flags().String("csv", "", "parcel roll CSV (default: latest cached snapshot)")
	impactCmd.Flags().Float64("ratio", 0, "land:building millage ratio (default from config)")
	impactCmd.Flags().String("xlsx", "", "write summary tables to an XLSX workbook")
	rootCmd.AddCommand(impactCmd)
}
