package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civiclab/splitrate/internal/export"
	"github.com/civiclab/splitrate/internal/report"
	"github.com/civiclab/splitrate/internal/tax"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Solve a revenue-neutral split-rate scenario",
	Long: `Recreates current taxes from the configured flat millage, solves the
building and land millages that hold total revenue constant at the chosen
land:building ratio, and prints the resulting rates.`,
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
		millage, _ := cmd.Flags().GetFloat64("current-millage")
		if millage == 0 {
			millage = cfg.Scenario.CurrentMillage
		}

		parcels, err := loadInputParcels(ctx, csvPath)
		if err != nil {
			return err
		}

		res, err := tax.RunScenario(parcels, millage, ratio)
		if err != nil {
			return err
		}

		report.New(os.Stdout).Scenario(res.Scenario, res.Warning)

		if yamlOut, _ := cmd.Flags().GetString("yaml"); yamlOut != "" {
			if err := export.WriteScenarioYAML(yamlOut, res.Scenario, res.Warning); err != nil {
				return err
			}
		}
		if csvOut, _ := cmd.Flags().GetString("out"); csvOut != "" {
			rows, err := export.BuildRows(parcels, res.Parcels)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(csvOut, rows); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	scenarioCmd.Flags().String("csv", "", "parcel roll CSV (default: latest cached snapshot)")
	scenarioCmd.Flags().Float64("ratio", 0, "land:building millage ratio (default from config)")
	scenarioCmd.Flags().Float64("current-millage", 0, "current flat millage (default from config)")
	scenarioCmd.Flags().String("yaml", "", "write the solved scenario to a YAML file")
	scenarioCmd.Flags().String("out", "", "write per-parcel results to a CSV file")
	rootCmd.AddCommand(scenarioCmd)
}
