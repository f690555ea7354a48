// Package store persists fetched parcel rolls and demographics so scenario
// runs can work offline. SQLite is the default backend; Postgres serves
// shared deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/model"
)

// ErrNotFound marks lookups that matched nothing.
var ErrNotFound = eris.New("store: not found")

// Snapshot identifies one saved parcel roll.
type Snapshot struct {
	ID          string    `json:"id"`
	County      string    `json:"county"`
	ParcelCount int       `json:"parcel_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the persistence interface for parcel rolls and demographics.
type Store interface {
	// Parcel snapshots
	SaveParcels(ctx context.Context, county string, parcels []model.Parcel) (*Snapshot, error)
	LoadParcels(ctx context.Context, snapshotID string) ([]model.Parcel, error)
	LatestSnapshot(ctx context.Context, county string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, county string, limit int) ([]Snapshot, error)

	// Demographics, keyed by county then block-group GEOID
	SaveDemographics(ctx context.Context, county string, demos []model.Demographics) error
	LoadDemographics(ctx context.Context, county string) ([]model.Demographics, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
