package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/category"
	"github.com/civiclab/splitrate/internal/export"
	"github.com/civiclab/splitrate/internal/fetcher"
	"github.com/civiclab/splitrate/internal/impact"
	"github.com/civiclab/splitrate/internal/model"
	"github.com/civiclab/splitrate/internal/store"
	"github.com/civiclab/splitrate/internal/tax"
)

// openStore opens the configured cache store and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func newHTTPFetcher() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

// loadInputParcels resolves the parcel roll for an analysis command: a CSV
// file when given, otherwise the latest cached snapshot for the configured
// county.
func loadInputParcels(ctx context.Context, csvPath string) ([]model.Parcel, error) {
	if csvPath != "" {
		return export.ReadParcelsCSV(csvPath)
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	snap, err := st.LatestSnapshot(ctx, cfg.Census.FIPS)
	if err != nil {
		return nil, eris.Wrap(err, "no cached parcel snapshot; run fetch first or pass --csv")
	}
	return st.LoadParcels(ctx, snap.ID)
}

// impactRows converts scenario output into aggregation rows grouped by key.
func impactRows(parcels []model.Parcel, taxes []tax.ParcelTax, key func(*model.Parcel) string) []impact.Row {
	rows := make([]impact.Row, len(taxes))
	for i := range taxes {
		rows[i] = impact.Row{
			Group:         key(&parcels[i]),
			Change:        taxes[i].Change,
			PercentChange: taxes[i].PercentChange,
		}
	}
	return rows
}

func byCategory(p *model.Parcel) string {
	return category.Categorize(p.PropertyUse, p.FullyExempt)
}
