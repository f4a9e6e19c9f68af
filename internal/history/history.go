// Package history persists run outcomes to a local sqlite file. The store is
// optional; runs without HISTORY_DB configured skip it entirely. History is
// for operators reading back what happened; it never influences a run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one invocation of the batch.
type Run struct {
	ID          string
	StartedAt   time.Time
	Manual      bool
	ReserveDate string
	StartHour   int
}

// Result is one account's outcome within a run.
type Result struct {
	RunID      string
	Username   string
	Outcome    string
	Reason     string
	Artifact   string
	FinishedAt time.Time
}

// RunSummary is a Run joined with its per-account tallies.
type RunSummary struct {
	Run
	Accounts int
	Failed   int
}

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		manual INTEGER NOT NULL,
		reserve_date TEXT NOT NULL,
		start_hour INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_results (
		run_id TEXT NOT NULL,
		username TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		artifact TEXT,
		finished_at TIMESTAMP NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_results_run_id ON run_results(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records the start of a batch.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	query := `INSERT INTO runs (id, started_at, manual, reserve_date, start_hour)
	          VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.StartedAt, run.Manual, run.ReserveDate, run.StartHour)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordResult appends one account's outcome to a run.
func (s *Store) RecordResult(ctx context.Context, res Result) error {
	query := `INSERT INTO run_results (run_id, username, outcome, reason, artifact, finished_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		res.RunID, res.Username, res.Outcome, res.Reason, res.Artifact, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs with their account tallies, newest
// first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT r.id, r.started_at, r.manual, r.reserve_date, r.start_hour,
	                 COUNT(rr.username),
	                 COALESCE(SUM(CASE WHEN rr.outcome != 'ok' THEN 1 ELSE 0 END), 0)
	          FROM runs r
	          LEFT JOIN run_results rr ON rr.run_id = r.id
	          GROUP BY r.id
	          ORDER BY r.started_at DESC
	          LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var rs RunSummary
		var manual int
		if err := rows.Scan(&rs.ID, &rs.StartedAt, &manual, &rs.ReserveDate,
			&rs.StartHour, &rs.Accounts, &rs.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rs.Manual = manual != 0
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// ResultsForRun returns a run's per-account results in insertion order.
func (s *Store) ResultsForRun(ctx context.Context, runID string) ([]Result, error) {
	query := `SELECT run_id, username, outcome, reason, artifact, finished_at
	          FROM run_results WHERE run_id = ? ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(&res.RunID, &res.Username, &res.Outcome,
			&res.Reason, &res.Artifact, &res.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
