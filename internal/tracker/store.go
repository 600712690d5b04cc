// Package tracker persists per-run translation outcomes in SQLite so that
// finished work survives the process and can be inspected later.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sublate/internal/pipeline"
)

// ErrNoRuns indicates the database holds no recorded runs yet.
var ErrNoRuns = errors.New("no runs recorded")

// Store manages outcome persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Run tags every outcome recorded through it with one run ID.
type Run struct {
	store *Store

	ID string
}

var _ pipeline.Recorder = (*Run)(nil)

// Outcome is one persisted file x target result.
type Outcome struct {
	RunID      string
	File       string
	TargetLang string
	OutputPath string
	Status     string
	CueCount   int
	Preserved  int
	Translated int
	Unresolved int
	Error      string
	Duration   time.Duration
	RecordedAt time.Time
}

// RunSummary describes one run for listings.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Outcomes   int
}

// Open opens the tracking database for writing. The write lock is held for
// the life of the store; a second concurrent writer fails fast.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create tracker directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire tracker lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("tracker database %s is in use by another run", path)
	}

	store, err := open(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	store.lock = lock
	return store, nil
}

// OpenRead opens an existing tracking database without taking the write
// lock, so reports can run alongside a translation run.
func OpenRead(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("tracker database: %w", err)
	}
	return open(path)
}

func open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database and releases the write lock, if held.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		_ = s.lock.Unlock()
	}
	return err
}

// BeginRun registers a new run and returns its handle.
func (s *Store) BeginRun(ctx context.Context) (*Run, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at) VALUES (?, ?)", id, now,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{store: s, ID: id}, nil
}

// RecordOutcome persists one terminal file x target outcome.
func (r *Run) RecordOutcome(ctx context.Context, record pipeline.OutcomeRecord) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := r.store.db.ExecContext(
		ctx,
		`INSERT INTO outcomes (
            run_id, file, target_lang, output_path, status,
            cue_count, preserved, translated, unresolved,
            error_message, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		record.File,
		record.TargetLang,
		nullableString(record.OutputPath),
		record.Status,
		record.CueCount,
		record.Preserved,
		record.Translated,
		record.Unresolved,
		nullableString(record.Error),
		record.Duration.Milliseconds(),
		now,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Finish stamps the run as done.
func (r *Run) Finish(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := r.store.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ? WHERE id = ?", now, r.ID,
	); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LatestRunID returns the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1",
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return id, nil
}

const outcomeColumns = "run_id, file, target_lang, output_path, status, cue_count, preserved, translated, unresolved, error_message, duration_ms, recorded_at"

// Outcomes returns every outcome recorded for a run, in recording order.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+outcomeColumns+" FROM outcomes WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// Runs lists recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.started_at, r.finished_at, COUNT(o.id)
         FROM runs r
         LEFT JOIN outcomes o ON o.run_id = r.id
         GROUP BY r.id
         ORDER BY r.started_at DESC, r.rowid DESC
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			summary     RunSummary
			startedRaw  string
			finishedRaw sql.NullString
		)
		if err := rows.Scan(&summary.ID, &startedRaw, &finishedRaw, &summary.Outcomes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if started, err := parseTimeString(startedRaw); err == nil {
			summary.StartedAt = started
		}
		if finishedRaw.Valid {
			if finished, err := parseTimeString(finishedRaw.String); err == nil {
				summary.FinishedAt = &finished
			}
		}
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanOutcome(scanner interface{ Scan(dest ...any) error }) (Outcome, error) {
	var (
		outcome      Outcome
		outputPath   sql.NullString
		errorMessage sql.NullString
		durationMS   int64
		recordedRaw  string
	)

	if err := scanner.Scan(
		&outcome.RunID,
		&outcome.File,
		&outcome.TargetLang,
		&outputPath,
		&outcome.Status,
		&outcome.CueCount,
		&outcome.Preserved,
		&outcome.Translated,
		&outcome.Unresolved,
		&errorMessage,
		&durationMS,
		&recordedRaw,
	); err != nil {
		return Outcome{}, err
	}

	outcome.OutputPath = outputPath.String
	outcome.Error = errorMessage.String
	outcome.Duration = time.Duration(durationMS) * time.Millisecond
	if recorded, err := parseTimeString(recordedRaw); err == nil {
		outcome.RecordedAt = recorded
	}
	return outcome, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
