package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users then need to clear or delete the catalog database.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrLocked indicates another process holds the catalog lock.
var ErrLocked = errors.New("catalog is locked by another process")

// Recording is one cataloged source file.
type Recording struct {
	ID                string
	Path              string
	SerialNumber      uint32
	BeamCount         uint32
	SamplesPerChannel uint32
	FrameCount        uint32
	FrameRate         float64
	WindowStart       float64
	WindowLength      float64
	RecordedAt        string
	AddedAt           time.Time
}

// Run is the persisted outcome of one conversion run.
type Run struct {
	ID            string
	StartedAt     time.Time
	Duration      time.Duration
	OutputDir     string
	Files         int
	FilesFailed   int
	Frames        int
	FramesDecoded int
	FramesFailed  int
}

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open initializes or connects to the catalog database at path. It takes an
// advisory lock on a sibling lock file and fails with ErrLocked when another
// process already holds it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
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
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, lock: lock, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close releases the database connection and the advisory lock.
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

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'sonaris catalog clear' or delete the database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// AddRecording inserts or refreshes the catalog entry for a recording,
// keyed by path. The returned value carries the assigned ID.
func (s *Store) AddRecording(ctx context.Context, rec Recording) (Recording, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.AddedAt.IsZero() {
		rec.AddedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (
            id, path, serial_number, beam_count, samples_per_channel,
            frame_count, frame_rate, window_start, window_length,
            recorded_at, added_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            serial_number = excluded.serial_number,
            beam_count = excluded.beam_count,
            samples_per_channel = excluded.samples_per_channel,
            frame_count = excluded.frame_count,
            frame_rate = excluded.frame_rate,
            window_start = excluded.window_start,
            window_length = excluded.window_length,
            recorded_at = excluded.recorded_at`,
		rec.ID, rec.Path, rec.SerialNumber, rec.BeamCount, rec.SamplesPerChannel,
		rec.FrameCount, rec.FrameRate, rec.WindowStart, rec.WindowLength,
		rec.RecordedAt, rec.AddedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Recording{}, fmt.Errorf("insert recording: %w", err)
	}

	return s.getRecordingByPath(ctx, rec.Path)
}

func (s *Store) getRecordingByPath(ctx context.Context, path string) (Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, serial_number, beam_count, samples_per_channel,
            frame_count, frame_rate, window_start, window_length,
            recorded_at, added_at
        FROM recordings WHERE path = ?`, path)
	return scanRecording(row)
}

// ListRecordings returns all cataloged recordings ordered by when they were
// added.
func (s *Store) ListRecordings(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, serial_number, beam_count, samples_per_channel,
            frame_count, frame_rate, window_start, window_length,
            recorded_at, added_at
        FROM recordings ORDER BY added_at, path`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var rec Recording
	var addedAt string
	err := row.Scan(&rec.ID, &rec.Path, &rec.SerialNumber, &rec.BeamCount,
		&rec.SamplesPerChannel, &rec.FrameCount, &rec.FrameRate,
		&rec.WindowStart, &rec.WindowLength, &rec.RecordedAt, &addedAt)
	if err != nil {
		return Recording{}, fmt.Errorf("scan recording: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, addedAt); err == nil {
		rec.AddedAt = ts
	}
	return rec, nil
}

// RecordRun persists the outcome of one conversion run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, started_at, duration_ms, output_dir,
            files, files_failed, frames, frames_decoded, frames_failed
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(),
		run.OutputDir, run.Files, run.FilesFailed,
		run.Frames, run.FramesDecoded, run.FramesFailed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns run history, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, output_dir,
            files, files_failed, frames, frames_decoded, frames_failed
        FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMS int64
		if err := rows.Scan(&run.ID, &startedAt, &durationMS, &run.OutputDir,
			&run.Files, &run.FilesFailed, &run.Frames,
			&run.FramesDecoded, &run.FramesFailed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			run.StartedAt = ts
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, run)
	}
	return out, rows.Err()
}

// Clear removes all recordings and run history.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"recordings", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
