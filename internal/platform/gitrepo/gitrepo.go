// Package gitrepo manages the local working copy: cloning the published
// history, reading its commit dates, rebuilding it from scratch and
// force-pushing the result.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
	"github.com/louisbranch/maker-of-life/internal/platform/timeouts"
)

const (
	remoteName  = "origin"
	localBranch = "master"
)

// Config locates the working copy and its remote.
type Config struct {
	// Path is the local directory owned by the working copy. It is removed
	// and recreated freely.
	Path string
	// URL is the remote to clone from and push to.
	URL string
	// Username and Token authenticate over HTTP. Both are optional.
	Username string
	Token    string
}

// Commit is one empty commit to write during Rebuild.
type Commit struct {
	Message string
	Name    string
	Email   string
	When    time.Time
}

// Repo is the local working copy of one remote.
type Repo struct {
	path string
	url  string
	auth transport.AuthMethod
}

// New validates cfg and returns a handle. Nothing touches disk until a
// method is called.
func New(cfg Config) (*Repo, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("working copy path is required")
	}
	remote := strings.TrimSpace(cfg.URL)
	if remote == "" {
		return nil, fmt.Errorf("remote url is required")
	}
	repo := &Repo{path: filepath.Clean(path), url: remote}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		username := strings.TrimSpace(cfg.Username)
		if username == "" {
			username = "x-access-token"
		}
		repo.auth = &githttp.BasicAuth{Username: username, Password: token}
	}
	return repo, nil
}

// Path returns the working copy directory.
func (r *Repo) Path() string {
	return r.path
}

// Reset removes the working copy directory. A missing directory is not an
// error.
func (r *Repo) Reset() error {
	if err := os.RemoveAll(r.path); err != nil {
		return fmt.Errorf("remove working copy: %w", err)
	}
	return nil
}

// CommitDates clones branch into the working copy and returns the author
// date of every commit reachable from its tip, newest first. An empty remote
// or a missing branch yields no dates.
func (r *Repo) CommitDates(ctx context.Context, branch string) ([]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Clone)
	defer cancel()

	opts := &git.CloneOptions{
		URL:          r.url,
		Auth:         r.auth,
		SingleBranch: true,
	}
	if branch = strings.TrimSpace(branch); branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}
	repo, err := git.PlainCloneContext(ctx, r.path, false, opts)
	switch {
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return nil, nil
	case isMissingReference(err):
		return nil, nil
	case err != nil:
		return nil, r.classify("clone", err)
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var dates []time.Time
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		dates = append(dates, c.Author.When)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	return dates, nil
}

// Rebuild replaces the working copy with a fresh repository holding one
// empty commit per entry, in order, each the parent of the next.
func (r *Repo) Rebuild(ctx context.Context, commits []Commit) error {
	if err := r.Reset(); err != nil {
		return err
	}
	repo, err := git.PlainInit(r.path, false)
	if err != nil {
		return fmt.Errorf("init working copy: %w", err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: remoteName, URLs: []string{r.url}}); err != nil {
		return fmt.Errorf("create remote: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	for i, commit := range commits {
		if err := ctx.Err(); err != nil {
			return err
		}
		signature := &object.Signature{Name: commit.Name, Email: commit.Email, When: commit.When}
		if _, err := worktree.Commit(commit.Message, &git.CommitOptions{
			AllowEmptyCommits: true,
			Author:            signature,
			Committer:         signature,
		}); err != nil {
			return fmt.Errorf("commit %d of %d: %w", i+1, len(commits), err)
		}
	}
	return nil
}

// Push force-pushes the rebuilt history to branch on the remote.
func (r *Repo) Push(ctx context.Context, branch string) error {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return fmt.Errorf("branch is required")
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Push)
	defer cancel()

	repo, err := git.PlainOpen(r.path)
	if err != nil {
		return fmt.Errorf("open working copy: %w", err)
	}
	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s",
		plumbing.NewBranchReferenceName(localBranch),
		plumbing.NewBranchReferenceName(branch),
	))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       r.auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return r.classify("push", err)
	}
	return nil
}

func (r *Repo) classify(op string, err error) error {
	metadata := map[string]string{"remote": redact(r.url)}
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return apperrors.WrapWithMetadata(apperrors.CodeRepositoryNotFound, op, metadata, err)
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%s: %w", op, err)
	case op == "push":
		return apperrors.WrapWithMetadata(apperrors.CodePushRejected, op, metadata, err)
	default:
		return apperrors.WrapWithMetadata(apperrors.CodeHostingUnavailable, op, metadata, err)
	}
}

func isMissingReference(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	var noMatch git.NoMatchingRefSpecError
	if errors.As(err, &noMatch) {
		return true
	}
	return strings.Contains(err.Error(), "couldn't find remote ref")
}

func redact(raw string) string {
	if at := strings.LastIndex(raw, "@"); at != -1 {
		if scheme := strings.Index(raw, "://"); scheme != -1 && scheme < at {
			return raw[:scheme+3] + raw[at+1:]
		}
	}
	return raw
}
