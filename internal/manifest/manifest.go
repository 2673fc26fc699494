// Package manifest records the outcome of every file of a build in a SQLite
// database, one run per build.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcome is what happened to one source file.
type Outcome string

const (
	Generated Outcome = "generated"
	Copied    Outcome = "copied"
	Skipped   Outcome = "skipped"
	Filtered  Outcome = "filtered"
	Failed    Outcome = "failed"
)

// Entry is one recorded file.
type Entry struct {
	RunID      string
	Path       string
	Dest       string
	Outcome    Outcome
	Bytes      int64
	Error      string
	RecordedAt time.Time
}

// Store is a build manifest backed by SQLite.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	runID string
}

// Open opens or creates the manifest at dbPath and starts a new run.
// Use ":memory:" for a throwaway manifest.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, runID: uuid.NewString()}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		path TEXT NOT NULL,
		dest TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RunID identifies the current run.
func (s *Store) RunID() string {
	return s.runID
}

// Record appends e to the current run. RunID and RecordedAt are filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO files (run_id, path, dest, outcome, bytes, error, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.runID, e.Path, e.Dest, string(e.Outcome), e.Bytes, e.Error, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert manifest entry: %w", err)
	}
	return nil
}

// Entries returns the entries of a run in recording order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, path, dest, outcome, bytes, error, recorded_at FROM files WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			outcome string
			ts      int64
		)
		if err := rows.Scan(&e.RunID, &e.Path, &e.Dest, &outcome, &e.Bytes, &e.Error, &ts); err != nil {
			return nil, fmt.Errorf("scan manifest entry: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.RecordedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts tallies the outcomes of a run.
func (s *Store) Counts(ctx context.Context, runID string) (map[Outcome]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT outcome, COUNT(*) FROM files WHERE run_id = ? GROUP BY outcome", runID)
	if err != nil {
		return nil, fmt.Errorf("query manifest: %w", err)
	}
	defer rows.Close()

	counts := make(map[Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan manifest counts: %w", err)
		}
		counts[Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
