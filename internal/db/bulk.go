// Package db provides the bulk write path behind the postgres store. Parcel
// snapshot saves stream through CopyInto; demographics refreshes, which
// overwrite rows in place, go through BulkUpsert.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyInto bulk-inserts rows into table via the COPY protocol. Snapshot
// parcels always land in a fresh snapshot, so plain COPY with no conflict
// handling is enough.
func CopyInto(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, eris.Errorf("db: copy into %s: no columns", table)
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: copy %d rows into %s", len(rows), table)
	}
	return n, nil
}

// UpsertConfig names the target of a bulk upsert. On conflict every column
// outside ConflictKeys is overwritten from the incoming row.
type UpsertConfig struct {
	Table        string
	Columns      []string
	ConflictKeys []string
}

// BulkUpsert refreshes rows that may already exist. COPY cannot express ON
// CONFLICT, so rows are staged: COPY into a temp table shaped like the
// target, then one INSERT ... ON CONFLICT DO UPDATE merges the stage into
// the target. Runs in a single transaction; the stage drops on commit.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.Errorf("db: upsert into %s: no columns", cfg.Table)
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.Errorf("db: upsert into %s: no conflict keys", cfg.Table)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: begin", cfg.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := pgx.Identifier{stageName(cfg.Table)}
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		stage.Sanitize(), pgx.Identifier{cfg.Table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: create stage", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, stage, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: copy stage", cfg.Table)
	}

	tag, err := tx.Exec(ctx, mergeSQL(cfg))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: merge", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s: commit", cfg.Table)
	}
	return tag.RowsAffected(), nil
}

func stageName(table string) string {
	return "_tmp_upsert_" + table
}

// mergeSQL builds the INSERT ... ON CONFLICT that folds the stage table into
// the target. When every column is a conflict key there is nothing to
// update, so the conflict action degrades to DO NOTHING.
func mergeSQL(cfg UpsertConfig) string {
	keys := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		keys[k] = true
	}
	var sets []string
	for _, c := range cfg.Columns {
		if keys[c] {
			continue
		}
		q := pgx.Identifier{c}.Sanitize()
		sets = append(sets, q+" = EXCLUDED."+q)
	}

	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	cols := quoteColumns(cfg.Columns)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		pgx.Identifier{cfg.Table}.Sanitize(), cols, cols,
		pgx.Identifier{stageName(cfg.Table)}.Sanitize(),
		quoteColumns(cfg.ConflictKeys), action,
	)
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
