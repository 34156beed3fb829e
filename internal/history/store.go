package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one pipeline invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Completed  int
	Reconciled int
	Failed     int
}

// StageCount is the per-stage tally of one run.
type StageCount struct {
	Stage      string
	Completed  int
	Reconciled int
	Failed     int
	Duration   time.Duration
}

// Failure is one item a run could not finish.
type Failure struct {
	Stage   string
	ItemKey string
	Kind    string
	Message string
}

// Open initializes or connects to the history database at dbPath and applies
// migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applyMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            started_at TEXT NOT NULL,
            finished_at TEXT NOT NULL,
            status TEXT NOT NULL,
            completed INTEGER NOT NULL DEFAULT 0,
            reconciled INTEGER NOT NULL DEFAULT 0,
            failed INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS run_stage_counts (
            run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            stage TEXT NOT NULL,
            completed INTEGER NOT NULL DEFAULT 0,
            reconciled INTEGER NOT NULL DEFAULT 0,
            failed INTEGER NOT NULL DEFAULT 0,
            duration_ms INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY (run_id, stage)
        )`,
		`CREATE TABLE IF NOT EXISTS run_failures (
            run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
            stage TEXT NOT NULL,
            item_key TEXT NOT NULL,
            kind TEXT NOT NULL,
            message TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// RecordRun persists one run with its stage counts and failures in a single
// transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, counts []StageCount, failures []Failure) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, status, completed, reconciled, failed)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Status,
		run.Completed,
		run.Reconciled,
		run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, count := range counts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_stage_counts (run_id, stage, completed, reconciled, failed, duration_ms)
             VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, count.Stage, count.Completed, count.Reconciled, count.Failed, count.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert stage count: %w", err)
		}
	}

	for _, failure := range failures {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_failures (run_id, stage, item_key, kind, message)
             VALUES (?, ?, ?, ?, ?)`,
			run.ID, failure.Stage, failure.ItemKey, failure.Kind, failure.Message,
		)
		if err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs first, at most limit of them.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, completed, reconciled, failed
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &started, &finished, &run.Status, &run.Completed, &run.Reconciled, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StageCounts returns the per-stage tallies for one run in stage order.
func (s *Store) StageCounts(ctx context.Context, runID string) ([]StageCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, completed, reconciled, failed, duration_ms
         FROM run_stage_counts WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stage counts: %w", err)
	}
	defer rows.Close()

	var counts []StageCount
	for rows.Next() {
		var count StageCount
		var durationMS int64
		if err := rows.Scan(&count.Stage, &count.Completed, &count.Reconciled, &count.Failed, &durationMS); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		count.Duration = time.Duration(durationMS) * time.Millisecond
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

// RunFailures returns the failures recorded for one run.
func (s *Store) RunFailures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, item_key, kind, message
         FROM run_failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var failure Failure
		if err := rows.Scan(&failure.Stage, &failure.ItemKey, &failure.Kind, &failure.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, failure)
	}
	return failures, rows.Err()
}
