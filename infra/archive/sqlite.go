// Package archive stores a per-tick history of simulation runs for
// reporting. Nothing in it is read back to resume a run.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Tsinling0525/journeyflow/model"
	"github.com/Tsinling0525/journeyflow/plugin"

	_ "modernc.org/sqlite" // SQLite driver
)

// NodeSample is one archived node stats row.
type NodeSample struct {
	Tick           uint64     `json:"tick"`
	Time           time.Time  `json:"time"`
	NodeID         model.ID   `json:"nodeId"`
	Kind           model.Kind `json:"kind"`
	Processed      uint64     `json:"processed"`
	Dropped        uint64     `json:"dropped"`
	Waiting        uint64     `json:"waiting"`
	CompletionRate uint64     `json:"completionRate"`
}

// SQLiteArchive implements plugin.RunArchive on a SQLite file.
type SQLiteArchive struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the archive database at path.
func OpenSQLite(path string) (*SQLiteArchive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteArchive{db: db}, nil
}

func (a *SQLiteArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *SQLiteArchive) BeginRun(ctx context.Context, run plugin.RunInfo) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := a.db.ExecContext(ctx, `
INSERT INTO runs (id, instance_id, journey_id, journey_name, seed, virtual_from, started_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InstanceID, string(run.JourneyID), run.JourneyName, run.Seed,
		run.VirtualFrom.UnixMilli(), run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// RecordTick stores the node and edge stats of j as of tick in a single
// transaction.
func (a *SQLiteArchive) RecordTick(ctx context.Context, runID string, tick uint64, now time.Time, j *model.Journey) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO node_stats (run_id, tick, virtual_time, node_id, kind, processed, dropped, waiting, completion_rate)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range j.Nodes {
		st := n.Stats
		if st == nil {
			st = &model.NodeStats{}
		}
		if _, err := nodeStmt.ExecContext(ctx, runID, tick, now.UnixMilli(), string(n.ID), string(n.Kind),
			st.Processed, st.Dropped, st.Waiting, st.CompletionRate); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO edge_stats (run_id, tick, edge_id, processed, percentage)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range j.Edges {
		var processed uint64
		var pct sql.NullInt64
		if e.Stats != nil {
			processed = e.Stats.Processed
			if e.Stats.Percentage != nil {
				pct = sql.NullInt64{Int64: int64(*e.Stats.Percentage), Valid: true}
			}
		}
		if _, err := edgeStmt.ExecContext(ctx, runID, tick, string(e.ID), processed, pct); err != nil {
			return fmt.Errorf("insert edge %s: %w", e.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE runs SET ticks = ? WHERE id = ?`, tick, runID); err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	return tx.Commit()
}

func (a *SQLiteArchive) EndRun(ctx context.Context, runID string, ticks uint64) error {
	res, err := a.db.ExecContext(ctx, `UPDATE runs SET ended_at = ?, ticks = ? WHERE id = ?`,
		time.Now().UTC().UnixMilli(), ticks, runID)
	if err != nil {
		return fmt.Errorf("end run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Runs lists archived runs, newest first. A limit of zero lists all.
func (a *SQLiteArchive) Runs(ctx context.Context, limit int) ([]plugin.RunInfo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, `
SELECT id, instance_id, journey_id, journey_name, seed, virtual_from, started_at, ended_at, ticks
FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []plugin.RunInfo
	for rows.Next() {
		var (
			r                  plugin.RunInfo
			journeyID          string
			virtualFrom, start int64
			ended              sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.InstanceID, &journeyID, &r.JourneyName, &r.Seed,
			&virtualFrom, &start, &ended, &r.Ticks); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.JourneyID = model.ID(journeyID)
		r.VirtualFrom = time.UnixMilli(virtualFrom).UTC()
		r.StartedAt = time.UnixMilli(start).UTC()
		if ended.Valid {
			r.EndedAt = time.UnixMilli(ended.Int64).UTC()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NodeHistory returns the samples of one node in tick order.
func (a *SQLiteArchive) NodeHistory(ctx context.Context, runID string, nodeID model.ID) ([]NodeSample, error) {
	return a.queryNodes(ctx, `
SELECT tick, virtual_time, node_id, kind, processed, dropped, waiting, completion_rate
FROM node_stats WHERE run_id = ? AND node_id = ? ORDER BY tick`, runID, string(nodeID))
}

// FinalNodes returns every node's stats at the last archived tick of a run.
func (a *SQLiteArchive) FinalNodes(ctx context.Context, runID string) ([]NodeSample, error) {
	return a.queryNodes(ctx, `
SELECT tick, virtual_time, node_id, kind, processed, dropped, waiting, completion_rate
FROM node_stats
WHERE run_id = ? AND tick = (SELECT MAX(tick) FROM node_stats WHERE run_id = ?)
ORDER BY rowid`, runID, runID)
}

func (a *SQLiteArchive) queryNodes(ctx context.Context, query string, args ...any) ([]NodeSample, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query node stats: %w", err)
	}
	defer rows.Close()

	var out []NodeSample
	for rows.Next() {
		var (
			s        NodeSample
			at       int64
			id, kind string
		)
		if err := rows.Scan(&s.Tick, &at, &id, &kind, &s.Processed, &s.Dropped, &s.Waiting, &s.CompletionRate); err != nil {
			return nil, fmt.Errorf("scan node stats: %w", err)
		}
		s.Time = time.UnixMilli(at).UTC()
		s.NodeID = model.ID(id)
		s.Kind = model.Kind(kind)
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ plugin.RunArchive = (*SQLiteArchive)(nil)
