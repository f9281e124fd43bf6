// Package store persists run history in SQLite: one row per resolution run
// with its counters, plus the full edge set, so two runs can be listed and
// diffed long after their output files rotate out of the archive.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/johns/sitewise/internal/resolve"
)

// Run is one recorded resolution run.
type Run struct {
	ID                  string
	CreatedAt           time.Time
	Activities          int
	WithoutPredecessors int
	EdgeCount           int
	AuditPath           string
}

// Store wraps the run-history database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    activities INTEGER NOT NULL,
    without_predecessors INTEGER NOT NULL,
    edge_count INTEGER NOT NULL,
    audit_path TEXT
);
CREATE TABLE IF NOT EXISTS run_edges (
    run_id TEXT NOT NULL,
    activity TEXT NOT NULL,
    predecessor TEXT NOT NULL,
    relation TEXT NOT NULL,
    task_type TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_run_edges_run ON run_edges(run_id);
`

// Open opens (creating if needed) the run store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run and its edges in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, edges []resolve.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, activities, without_predecessors, edge_count, audit_path)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), run.Activities, run.WithoutPredecessors, run.EdgeCount, run.AuditPath)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_edges (run_id, activity, predecessor, relation, task_type)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, run.ID, e.Activity, e.Predecessor, e.Relation, e.TaskType); err != nil {
			return fmt.Errorf("insert edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Runs lists recorded runs, most recent first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, created_at, activities, without_predecessors, edge_count, audit_path
	          FROM runs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var audit sql.NullString
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Activities, &r.WithoutPredecessors, &r.EdgeCount, &audit); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.AuditPath = audit.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Edges returns a run's edge set in insertion order.
func (s *Store) Edges(ctx context.Context, runID string) ([]resolve.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity, predecessor, relation, task_type
		 FROM run_edges WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []resolve.Edge
	for rows.Next() {
		var e resolve.Edge
		if err := rows.Scan(&e.Activity, &e.Predecessor, &e.Relation, &e.TaskType); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DiffEdges compares two runs' edge sets: added holds edges present in
// runB but not runA, removed the reverse.
func (s *Store) DiffEdges(ctx context.Context, runA, runB string) (added, removed []resolve.Edge, err error) {
	edgesA, err := s.Edges(ctx, runA)
	if err != nil {
		return nil, nil, err
	}
	edgesB, err := s.Edges(ctx, runB)
	if err != nil {
		return nil, nil, err
	}

	key := func(e resolve.Edge) string {
		return e.Activity + "\x00" + e.Predecessor + "\x00" + e.Relation
	}

	inA := make(map[string]bool, len(edgesA))
	for _, e := range edgesA {
		inA[key(e)] = true
	}
	inB := make(map[string]bool, len(edgesB))
	for _, e := range edgesB {
		inB[key(e)] = true
	}

	for _, e := range edgesB {
		if !inA[key(e)] {
			added = append(added, e)
		}
	}
	for _, e := range edgesA {
		if !inB[key(e)] {
			removed = append(removed, e)
		}
	}
	return added, removed, nil
}
