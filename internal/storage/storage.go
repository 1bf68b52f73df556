package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested run record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a run with the same ID already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Run is one ledger entry.
type Run struct {
	ID         string
	Owner      string
	Repository string
	// Anchor is the day the grid was framed on, at midnight UTC.
	Anchor     time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	Width       int
	Generations int

	// Observations counts every parsed date fed to the grid, history and
	// seeds alike. Seeds is the subset that came from issues or flags.
	Observations int
	Seeds        int
	// Rejected counts malformed seed inputs; Dropped counts parsed dates
	// that fell outside the frame.
	Rejected int
	Dropped  int

	LiveBefore int
	LiveAfter  int
	Events     int

	DryRun       bool
	Pushed       bool
	ClosedIssues int

	// SeedCells and NextCells hold the grid before and after stepping, in
	// column-major [column][row] form.
	SeedCells [][]int
	NextCells [][]int
}

// RunStore persists run ledger records.
type RunStore interface {
	RecordRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
