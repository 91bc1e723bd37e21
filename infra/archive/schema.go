package archive

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current archive schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL DEFAULT '',
    journey_id TEXT NOT NULL,
    journey_name TEXT NOT NULL DEFAULT '',
    seed INTEGER NOT NULL,
    virtual_from INTEGER NOT NULL,
    started_at INTEGER NOT NULL,
    ended_at INTEGER,
    ticks INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS node_stats (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    tick INTEGER NOT NULL,
    virtual_time INTEGER NOT NULL,
    node_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    processed INTEGER NOT NULL,
    dropped INTEGER NOT NULL,
    waiting INTEGER NOT NULL,
    completion_rate INTEGER NOT NULL,
    PRIMARY KEY (run_id, tick, node_id)
);

CREATE TABLE IF NOT EXISTS edge_stats (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    tick INTEGER NOT NULL,
    edge_id TEXT NOT NULL,
    processed INTEGER NOT NULL,
    percentage INTEGER,
    PRIMARY KEY (run_id, tick, edge_id)
);

CREATE INDEX IF NOT EXISTS idx_node_stats_node ON node_stats(run_id, node_id, tick);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the archive tables on a fresh database.
func InitSchema(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err == nil && version >= SchemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
