package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civiclab/splitrate/internal/census"
	"github.com/civiclab/splitrate/internal/fetcher"
	"github.com/civiclab/splitrate/internal/geomatch"
)

var demographicsCmd = &cobra.Command{
	Use:   "demographics",
	Short: "Fetch ACS block-group demographics and join them onto parcels",
	Long: `Fetches ACS 5-year block-group demographics and TIGERweb boundaries for the
configured county, matches each cached parcel to its block group by centroid,
and saves the enriched roll as a new snapshot. Unmatched parcels are kept
without demographics.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("demographics"); err != nil {
			return err
		}

		hf := newHTTPFetcher()

		acs, err := census.NewACSClient(hf, cfg.Census.APIKey, cfg.Census.Year)
		if err != nil {
			return err
		}
		demos, err := acs.FetchBlockGroups(ctx, cfg.Census.FIPS)
		if err != nil {
			return eris.Wrap(err, "demographics: acs")
		}

		boundaries, err := fetchBoundaries(cmd, hf)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveDemographics(ctx, cfg.Census.FIPS, demos); err != nil {
			return eris.Wrap(err, "demographics: save")
		}

		snap, err := st.LatestSnapshot(ctx, cfg.Census.FIPS)
		if err != nil {
			return eris.Wrap(err, "no cached parcel snapshot; run fetch first")
		}
		parcels, err := st.LoadParcels(ctx, snap.ID)
		if err != nil {
			return err
		}

		stats := geomatch.Join(parcels, boundaries, demos)

		enriched, err := st.SaveParcels(ctx, cfg.Census.FIPS, parcels)
		if err != nil {
			return eris.Wrap(err, "demographics: save enriched snapshot")
		}

		zap.L().Info("demographics join complete",
			zap.String("snapshot", enriched.ID),
			zap.Int("matched", stats.Matched),
			zap.Int("no_centroid", stats.NoCentroid),
			zap.Int("no_boundary", stats.NoBoundary),
		)
		fmt.Printf("Joined demographics for %d of %d parcels into snapshot %s\n",
			stats.Matched, len(parcels), enriched.ID)
		return nil
	},
}

// fetchBoundaries prefers live TIGERweb boundaries; --shapefile forces the
// TIGER/Line archive path, which also serves as an offline cache.
func fetchBoundaries(cmd *cobra.Command, hf *fetcher.HTTPFetcher) ([]census.BlockGroup, error) {
	ctx := cmd.Context()
	useShapefile, _ := cmd.Flags().GetBool("shapefile")

	if !useShapefile {
		boundaries, err := census.NewBoundaryClient(hf).FetchBlockGroups(ctx, cfg.Census.FIPS)
		if err == nil {
			return boundaries, nil
		}
		zap.L().Warn("tigerweb boundary fetch failed, trying shapefile archive", zap.Error(err))
	}

	sc := census.NewShapefileClient(hf,
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: 2 * time.Minute}),
		cfg.Census.TigerYear, cfg.Census.CacheDir)
	return sc.FetchBlockGroups(ctx, cfg.Census.FIPS)
}

func init() {
	demographicsCmd.Flags().Bool("shapefile", false, "load boundaries from the TIGER/Line archive instead of TIGERweb")
	rootCmd.AddCommand(demographicsCmd)
}
