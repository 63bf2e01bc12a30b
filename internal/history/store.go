package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"repack/internal/config"
)

// Status values a journaled run can hold.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one journaled compaction run.
type Run struct {
	ID            string
	DatasetPath   string
	TargetPath    string
	Status        string
	ErrorMessage  string
	Deleted       int
	AlreadyAbsent int
	Renamed       int
	Remaining     int
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// Store manages the journal database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS compaction_runs (
    id             TEXT PRIMARY KEY,
    dataset_path   TEXT NOT NULL,
    target_path    TEXT,
    status         TEXT NOT NULL,
    error_message  TEXT,
    deleted        INTEGER NOT NULL DEFAULT 0,
    already_absent INTEGER NOT NULL DEFAULT 0,
    renamed        INTEGER NOT NULL DEFAULT 0,
    remaining      INTEGER NOT NULL DEFAULT 0,
    started_at     TEXT NOT NULL,
    finished_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON compaction_runs(started_at);
`

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.JournalPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a starting run and returns it with a fresh identifier.
func (s *Store) Begin(ctx context.Context, datasetPath, targetPath string) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		DatasetPath: datasetPath,
		TargetPath:  targetPath,
		Status:      StatusRunning,
		StartedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO compaction_runs (id, dataset_path, target_path, status, started_at)
         VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.DatasetPath,
		nullableString(run.TargetPath),
		run.Status,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Outcome carries the final counts of a run.
type Outcome struct {
	Deleted       int
	AlreadyAbsent int
	Renamed       int
	Remaining     int
}

// Finish finalizes a run with its outcome. A non-nil runErr marks the run
// failed and stores the error message.
func (s *Store) Finish(ctx context.Context, run *Run, outcome Outcome, runErr error) error {
	if run == nil {
		return errors.New("run is nil")
	}
	status := StatusCompleted
	message := ""
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE compaction_runs
         SET status = ?, error_message = ?, deleted = ?, already_absent = ?,
             renamed = ?, remaining = ?, finished_at = ?
         WHERE id = ?`,
		status,
		nullableString(message),
		outcome.Deleted,
		outcome.AlreadyAbsent,
		outcome.Renamed,
		outcome.Remaining,
		now.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	run.Status = status
	run.ErrorMessage = message
	run.FinishedAt = &now
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, dataset_path, target_path, status, error_message,
                deleted, already_absent, renamed, remaining, started_at, finished_at
         FROM compaction_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			targetPath  sql.NullString
			message     sql.NullString
			startedRaw  string
			finishedRaw sql.NullString
		)
		if err := rows.Scan(
			&run.ID,
			&run.DatasetPath,
			&targetPath,
			&run.Status,
			&message,
			&run.Deleted,
			&run.AlreadyAbsent,
			&run.Renamed,
			&run.Remaining,
			&startedRaw,
			&finishedRaw,
		); err != nil {
			return nil, err
		}
		run.TargetPath = targetPath.String
		run.ErrorMessage = message.String
		if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			run.StartedAt = started
		}
		if finishedRaw.Valid {
			if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
				run.FinishedAt = &finished
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
