package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/civiclab/splitrate/internal/db"
	"github.com/civiclab/splitrate/internal/model"
)

// PostgresStore implements Store using pgxpool. Parcels are stored one row
// per parcel so large rolls can be bulk-loaded with COPY.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_snapshot":   `INSERT INTO snapshots (id, county, parcel_count, created_at) VALUES ($1, $2, $3, $4)`,
	"load_parcels":      `SELECT data FROM parcels WHERE snapshot_id = $1 ORDER BY parcel_id`,
	"latest_snapshot":   `SELECT id, county, parcel_count, created_at FROM snapshots WHERE county = $1 ORDER BY created_at DESC LIMIT 1`,
	"load_demographics": `SELECT data FROM demographics WHERE county = $1 ORDER BY geoid`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	county       TEXT NOT NULL,
	parcel_count INTEGER NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS parcels (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	parcel_id   TEXT NOT NULL,
	data        JSONB NOT NULL,
	PRIMARY KEY (snapshot_id, parcel_id)
);

CREATE TABLE IF NOT EXISTS demographics (
	county     TEXT NOT NULL,
	geoid      TEXT NOT NULL,
	data       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (county, geoid)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_county_created ON snapshots(county, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveParcels(ctx context.Context, county string, parcels []model.Parcel) (*Snapshot, error) {
	if len(parcels) == 0 {
		return nil, eris.New("postgres: refusing to save empty parcel roll")
	}

	snap := &Snapshot{
		ID:          uuid.New().String(),
		County:      county,
		ParcelCount: len(parcels),
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, county, parcel_count, created_at) VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.County, snap.ParcelCount, snap.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert snapshot")
	}

	rows := make([][]any, 0, len(parcels))
	for i := range parcels {
		data, err := json.Marshal(&parcels[i])
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal parcel %s", parcels[i].ID)
		}
		rows = append(rows, []any{snap.ID, parcels[i].ID, string(data)})
	}
	if _, err := db.CopyInto(ctx, s.pool, "parcels", []string{"snapshot_id", "parcel_id", "data"}, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: copy parcels")
	}
	return snap, nil
}

func (s *PostgresStore) LoadParcels(ctx context.Context, snapshotID string) ([]model.Parcel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM parcels WHERE snapshot_id = $1 ORDER BY parcel_id`, snapshotID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load snapshot %s", snapshotID)
	}
	defer rows.Close()

	var out []model.Parcel
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan parcel")
		}
		var p model.Parcel
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal parcel")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: load snapshot %s", snapshotID)
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "postgres: snapshot %s", snapshotID)
	}
	return out, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, county string) (*Snapshot, error) {
	var snap Snapshot
	err := s.pool.QueryRow(ctx,
		`SELECT id, county, parcel_count, created_at FROM snapshots
		 WHERE county = $1 ORDER BY created_at DESC LIMIT 1`, county,
	).Scan(&snap.ID, &snap.County, &snap.ParcelCount, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: no snapshots for county %s", county)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest snapshot for county %s", county)
	}
	return &snap, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, county string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, county, parcel_count, created_at FROM snapshots
		 WHERE county = $1 ORDER BY created_at DESC LIMIT $2`, county, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.County, &snap.ParcelCount, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		out = append(out, snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list snapshots")
}

func (s *PostgresStore) SaveDemographics(ctx context.Context, county string, demos []model.Demographics) error {
	if len(demos) == 0 {
		return eris.New("postgres: refusing to save empty demographics")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(demos))
	for i := range demos {
		data, err := json.Marshal(&demos[i])
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal demographics %s", demos[i].GEOID)
		}
		rows = append(rows, []any{county, demos[i].GEOID, string(data), now})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "demographics",
		Columns:      []string{"county", "geoid", "data", "fetched_at"},
		ConflictKeys: []string{"county", "geoid"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert demographics")
}

func (s *PostgresStore) LoadDemographics(ctx context.Context, county string) ([]model.Demographics, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM demographics WHERE county = $1 ORDER BY geoid`, county,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load demographics")
	}
	defer rows.Close()

	var out []model.Demographics
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan demographics")
		}
		var d model.Demographics
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal demographics")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load demographics")
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "postgres: no demographics for county %s", county)
	}
	return out, nil
}
