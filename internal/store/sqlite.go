package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/civiclab/splitrate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	county       TEXT NOT NULL,
	parcel_count INTEGER NOT NULL,
	parcels      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS demographics (
	county     TEXT NOT NULL,
	geoid      TEXT NOT NULL,
	data       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (county, geoid)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_county_created ON snapshots(county, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveParcels(ctx context.Context, county string, parcels []model.Parcel) (*Snapshot, error) {
	if len(parcels) == 0 {
		return nil, eris.New("sqlite: refusing to save empty parcel roll")
	}

	blob, err := json.Marshal(parcels)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal parcels")
	}

	snap := &Snapshot{
		ID:          uuid.New().String(),
		County:      county,
		ParcelCount: len(parcels),
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, county, parcel_count, parcels, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.County, snap.ParcelCount, string(blob), snap.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert snapshot")
	}
	return snap, nil
}

func (s *SQLiteStore) LoadParcels(ctx context.Context, snapshotID string) ([]model.Parcel, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT parcels FROM snapshots WHERE id = ?`, snapshotID,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: snapshot %s", snapshotID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load snapshot %s", snapshotID)
	}

	var parcels []model.Parcel
	if err := json.Unmarshal([]byte(blob), &parcels); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal snapshot %s", snapshotID)
	}
	return parcels, nil
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, county string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, county, parcel_count, created_at FROM snapshots
		 WHERE county = ? ORDER BY created_at DESC LIMIT 1`, county,
	).Scan(&snap.ID, &snap.County, &snap.ParcelCount, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: no snapshots for county %s", county)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest snapshot for county %s", county)
	}
	return &snap, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, county string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, county, parcel_count, created_at FROM snapshots
		 WHERE county = ? ORDER BY created_at DESC LIMIT ?`, county, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close() //nolint:errcheck

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.County, &snap.ParcelCount, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list snapshots")
}

func (s *SQLiteStore) SaveDemographics(ctx context.Context, county string, demos []model.Demographics) error {
	if len(demos) == 0 {
		return eris.New("sqlite: refusing to save empty demographics")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin demographics tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for i := range demos {
		data, err := json.Marshal(&demos[i])
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal demographics %s", demos[i].GEOID)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO demographics (county, geoid, data, fetched_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (county, geoid) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`,
			county, demos[i].GEOID, string(data), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert demographics %s", demos[i].GEOID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit demographics")
}

func (s *SQLiteStore) LoadDemographics(ctx context.Context, county string) ([]model.Demographics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM demographics WHERE county = ? ORDER BY geoid`, county,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load demographics")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Demographics
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan demographics")
		}
		var d model.Demographics
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal demographics")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load demographics")
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: no demographics for county %s", county)
	}
	return out, nil
}
