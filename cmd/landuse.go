package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/category"
	"github.com/civiclab/splitrate/internal/landuse"
	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/report"
)

var landuseCmd = &cobra.Command{
	Use:   "landuse",
	Short: "Analyze land utilization patterns in the parcel roll",
	Long: `Reports vacant-land holdings and ownership concentration, parking-lot
efficiency, land value by improvement share, and the development tax penalty
implied by taxing buildings. All dollar figures are exemption-adjusted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		csvPath, _ := cmd.Flags().GetString("csv")
		parcels, err := loadInputParcels(ctx, csvPath)
		if err != nil {
			return err
		}

		r := report.New(os.Stdout)

		isVacant := func(p *model.Parcel) bool { return byCategory(p) == category.VacantLand }
		if va, err := landuse.AnalyzeVacant(parcels, isVacant); err != nil {
			zap.L().Warn("skipping vacant-land analysis", zap.Error(err))
		} else {
			r.Vacant(va)
		}

		isParking := func(p *model.Parcel) bool { return byCategory(p) == category.Parking }
		parkingOpts := landuse.ParkingOptions{
			MinLandValue:        cfg.Landuse.ParkingMinLandValue,
			MaxImprovementRatio: cfg.Landuse.ParkingMaxImprRatio,
		}
		if pa, err := landuse.AnalyzeParking(parcels, isParking, parkingOpts); err != nil {
			zap.L().Warn("skipping parking analysis", zap.Error(err))
		} else {
			r.Parking(pa)
		}

		r.ShareBands(landuse.ImprovementShareBands(parcels))

		penaltyOpts := landuse.PenaltyOptions{
			MillageRate:             cfg.Landuse.PenaltyMillage,
			Years:                   cfg.Landuse.PenaltyYears,
			DiscountRate:            cfg.Landuse.PenaltyDiscountRate,
			ConstructionCostPerSqFt: cfg.Landuse.ConstructionPerSqFt,
			UnitSizeSqFt:            cfg.Landuse.UnitSizeSqFt,
		}
		if pr, err := landuse.DevelopmentPenalty(parcels, penaltyOpts); err != nil {
			zap.L().Warn("skipping development penalty", zap.Error(err))
		} else {
			r.Penalty(pr)
		}

		return nil
	},
}

func init() {
	landuseCmd.Flags().String("csv", "", "parcel roll CSV (default: latest cached snapshot)")
	rootCmd.AddCommand(landuseCmd)
}
