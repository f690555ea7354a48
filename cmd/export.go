package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civiclab/splitrate/internal/export"
	"github.com/civiclab/splitrate/internal/tax"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scenario results to CSV, XLSX, and YAML",
	Long: `Runs the scenario and writes whichever outputs are requested: the
per-parcel result CSV, the impact summary workbook, and the scenario YAML.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scenario"); err != nil {
			return err
		}

		csvOut, _ := cmd.Flags().GetString("out")
		xlsxOut, _ := cmd.Flags().GetString("xlsx")
		yamlOut, _ := cmd.Flags().GetString("yaml")
		if csvOut == "" && xlsxOut == "" && yamlOut == "" {
			return fmt.Errorf("nothing to export: pass --out, --xlsx, or --yaml")
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

		if csvOut != "" {
			rows, err := export.BuildRows(parcels, res.Parcels)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(csvOut, rows); err != nil {
				return err
			}
			fmt.Printf("Wrote %d parcel rows to %s\n", len(rows), csvOut)
		}
		if xlsxOut != "" {
			sheets, err := buildImpactTables(parcels, res.Parcels)
			if err != nil {
				return err
			}
			if err := export.WriteSummaryXLSX(xlsxOut, res.Scenario, sheets); err != nil {
				return err
			}
			fmt.Printf("Wrote summary workbook to %s\n", xlsxOut)
		}
		if yamlOut != "" {
			if err := export.WriteScenarioYAML(yamlOut, res.Scenario, res.Warning); err != nil {
				return err
			}
			fmt.Printf("Wrote scenario to %s\n", yamlOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("csv", "", "parcel roll CSV (default: latest cached snapshot)")
	exportCmd.Flags().Float64("ratio", 0, "land:building millage ratio (default from config)")
	exportCmd.Flags().String("out", "", "per-parcel result CSV path")
	exportCmd.Flags().String("xlsx", "", "summary workbook path")
	exportCmd.Flags().String("yaml", "", "scenario YAML path")
	rootCmd.AddCommand(exportCmd)
}
