package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/louisbranch/maker-of-life/internal/platform/github"
	"github.com/louisbranch/maker-of-life/internal/platform/gitrepo"
	"github.com/louisbranch/maker-of-life/internal/storage"
)

// fakeHost implements repositoryHost with canned metadata and issues.
type fakeHost struct {
	mu        sync.Mutex
	repo      github.Repository
	repoErr   error
	issues    []github.Issue
	issuesErr error
	closeErrs map[int]error
	closed    []int
}

func (f *fakeHost) Repository(_ context.Context) (github.Repository, error) {
	if f.repoErr != nil {
		return github.Repository{}, f.repoErr
	}
	return f.repo, nil
}

func (f *fakeHost) OpenIssues(_ context.Context) ([]github.Issue, error) {
	if f.issuesErr != nil {
		return nil, f.issuesErr
	}
	return f.issues, nil
}

func (f *fakeHost) CloseIssue(_ context.Context, number int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.closeErrs[number]; err != nil {
		return err
	}
	f.closed = append(f.closed, number)
	return nil
}

// fakeWorkingCopy implements workingCopy and records what was written.
type fakeWorkingCopy struct {
	history    []time.Time
	historyErr error
	resetErr   error
	rebuildErr error
	pushErr    error

	resets       int
	readBranch   string
	commits      []gitrepo.Commit
	rebuilt      bool
	pushedBranch string
	pushes       int
}

func (f *fakeWorkingCopy) Reset() error {
	f.resets++
	return f.resetErr
}

func (f *fakeWorkingCopy) CommitDates(_ context.Context, branch string) ([]time.Time, error) {
	f.readBranch = branch
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

func (f *fakeWorkingCopy) Rebuild(_ context.Context, commits []gitrepo.Commit) error {
	if f.rebuildErr != nil {
		return f.rebuildErr
	}
	f.rebuilt = true
	f.commits = append([]gitrepo.Commit(nil), commits...)
	return nil
}

func (f *fakeWorkingCopy) Push(_ context.Context, branch string) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes++
	f.pushedBranch = branch
	return nil
}

// fakeLedger implements closableRunStore in memory.
type fakeLedger struct {
	runs      []storage.Run
	recordErr error
	listErr   error
	getErr    error
	closeErr  error
	closed    bool

	recordDeadline bool
}

func (f *fakeLedger) RecordRun(ctx context.Context, run storage.Run) error {
	_, f.recordDeadline = ctx.Deadline()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeLedger) GetRun(_ context.Context, id string) (storage.Run, error) {
	if f.getErr != nil {
		return storage.Run{}, f.getErr
	}
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return storage.Run{}, storage.ErrNotFound
}

func (f *fakeLedger) ListRuns(_ context.Context, limit int) ([]storage.Run, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	var runs []storage.Run
	for i := len(f.runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, f.runs[i])
	}
	return runs, nil
}

func (f *fakeLedger) Close() error {
	f.closed = true
	return f.closeErr
}
