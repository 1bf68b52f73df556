// Package sqlite provides a SQLite-backed run ledger.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/maker-of-life/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/maker-of-life/internal/storage"
	"github.com/louisbranch/maker-of-life/internal/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists run records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite run ledger, creating its parent directory when needed,
// and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordRun inserts one run record.
func (s *Store) RecordRun(ctx context.Context, run storage.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	runID := strings.TrimSpace(run.ID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Width <= 0 {
		return fmt.Errorf("run width must be greater than zero")
	}
	startedAt := run.StartedAt.UTC()
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	finishedAt := run.FinishedAt.UTC()
	if finishedAt.IsZero() {
		finishedAt = startedAt
	}
	seedCells, err := encodeCells(run.SeedCells)
	if err != nil {
		return fmt.Errorf("encode seed cells: %w", err)
	}
	nextCells, err := encodeCells(run.NextCells)
	if err != nil {
		return fmt.Errorf("encode next cells: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO runs (
		   id, owner, repository, anchor, started_at, finished_at,
		   width, generations, observations, seeds, rejected, dropped,
		   live_before, live_after, events, dry_run, pushed, closed_issues,
		   seed_cells, next_cells
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		strings.TrimSpace(run.Owner),
		strings.TrimSpace(run.Repository),
		toMillis(run.Anchor),
		toMillis(startedAt),
		toMillis(finishedAt),
		run.Width,
		run.Generations,
		run.Observations,
		run.Seeds,
		run.Rejected,
		run.Dropped,
		run.LiveBefore,
		run.LiveAfter,
		run.Events,
		run.DryRun,
		run.Pushed,
		run.ClosedIssues,
		seedCells,
		nextCells,
	)
	if err != nil {
		if isRunUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return storage.Run{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Run{}, fmt.Errorf("storage is not configured")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return storage.Run{}, fmt.Errorf("run id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, runID)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Run{}, storage.ErrNotFound
		}
		return storage.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]storage.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

const selectRuns = `SELECT id, owner, repository, anchor, started_at, finished_at,
        width, generations, observations, seeds, rejected, dropped,
        live_before, live_after, events, dry_run, pushed, closed_issues,
        seed_cells, next_cells
   FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (storage.Run, error) {
	var (
		run        storage.Run
		anchor     int64
		startedAt  int64
		finishedAt int64
		seedCells  string
		nextCells  string
	)
	if err := row.Scan(
		&run.ID,
		&run.Owner,
		&run.Repository,
		&anchor,
		&startedAt,
		&finishedAt,
		&run.Width,
		&run.Generations,
		&run.Observations,
		&run.Seeds,
		&run.Rejected,
		&run.Dropped,
		&run.LiveBefore,
		&run.LiveAfter,
		&run.Events,
		&run.DryRun,
		&run.Pushed,
		&run.ClosedIssues,
		&seedCells,
		&nextCells,
	); err != nil {
		return storage.Run{}, err
	}
	run.Anchor = fromMillis(anchor)
	run.StartedAt = fromMillis(startedAt)
	run.FinishedAt = fromMillis(finishedAt)
	var err error
	if run.SeedCells, err = decodeCells(seedCells); err != nil {
		return storage.Run{}, fmt.Errorf("decode seed cells: %w", err)
	}
	if run.NextCells, err = decodeCells(nextCells); err != nil {
		return storage.Run{}, fmt.Errorf("decode next cells: %w", err)
	}
	return run, nil
}

func encodeCells(cells [][]int) (string, error) {
	if cells == nil {
		return "[]", nil
	}
	data, err := json.Marshal(cells)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeCells(raw string) ([][]int, error) {
	var cells [][]int
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}
	return cells, nil
}

func isRunUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "runs.id")
}

var _ storage.RunStore = (*Store)(nil)
