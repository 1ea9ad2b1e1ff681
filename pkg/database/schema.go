package database

import (
	"context"
	"fmt"
)

// schema holds the persistence layout for rating history and study output.
// rating_history is the optional feed source (loaded by ingest.PGLoader).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rating_history (
		id          BIGSERIAL PRIMARY KEY,
		agency      TEXT        NOT NULL,
		bond_id     TEXT        NOT NULL,
		rating_date DATE        NOT NULL,
		rating      TEXT        NOT NULL,
		loaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rating_history_bond
		ON rating_history (bond_id, agency, rating_date)`,
	`CREATE TABLE IF NOT EXISTS study_runs (
		run_id           UUID PRIMARY KEY,
		start_date       DATE        NOT NULL,
		end_date         DATE        NOT NULL,
		config_hash      TEXT        NOT NULL DEFAULT '',
		bonds            INTEGER     NOT NULL,
		transitions      INTEGER     NOT NULL,
		skipped          INTEGER     NOT NULL,
		defaults         INTEGER     NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transition_cells (
		run_id      UUID     NOT NULL REFERENCES study_runs(run_id) ON DELETE CASCADE,
		from_code   TEXT     NOT NULL,
		to_code     TEXT     NOT NULL,
		count       INTEGER  NOT NULL,
		probability DOUBLE PRECISION,
		severity    DOUBLE PRECISION,
		PRIMARY KEY (run_id, from_code, to_code)
	)`,
	`CREATE TABLE IF NOT EXISTS composite_snapshots (
		run_id       UUID    NOT NULL REFERENCES study_runs(run_id) ON DELETE CASCADE,
		bond_id      TEXT    NOT NULL,
		side         TEXT    NOT NULL,
		moodys       TEXT    NOT NULL,
		sp           TEXT    NOT NULL,
		fitch        TEXT    NOT NULL,
		composite    TEXT    NOT NULL,
		agency_count INTEGER NOT NULL,
		PRIMARY KEY (run_id, bond_id, side)
	)`,
}

// EnsureSchema creates the tables used by the persistence layer if missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
