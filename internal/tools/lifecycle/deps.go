package lifecycle

import (
	"context"
	"time"

	"github.com/louisbranch/maker-of-life/internal/platform/github"
	"github.com/louisbranch/maker-of-life/internal/platform/gitrepo"
	"github.com/louisbranch/maker-of-life/internal/storage"
)

// repositoryHost is the hosted API surface the pipeline needs.
type repositoryHost interface {
	Repository(ctx context.Context) (github.Repository, error)
	OpenIssues(ctx context.Context) ([]github.Issue, error)
	CloseIssue(ctx context.Context, number int) error
}

// workingCopy is the local clone the pipeline reads and rewrites.
type workingCopy interface {
	Reset() error
	CommitDates(ctx context.Context, branch string) ([]time.Time, error)
	Rebuild(ctx context.Context, commits []gitrepo.Commit) error
	Push(ctx context.Context, branch string) error
}

// closableRunStore extends RunStore with a Close method for resource cleanup.
type closableRunStore interface {
	storage.RunStore
	Close() error
}

// deps bundles the collaborators of one run. ledger may be nil.
type deps struct {
	host   repositoryHost
	repo   workingCopy
	ledger closableRunStore
	now    func() time.Time
	newID  func() (string, error)
}
