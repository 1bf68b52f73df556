// Package lifecycle runs one daily generation: it reads the published
// history and seed issues, advances the grid, and republishes the result.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
	"github.com/louisbranch/maker-of-life/internal/core/life"
	"github.com/louisbranch/maker-of-life/internal/core/schedule"
	"github.com/louisbranch/maker-of-life/internal/platform/github"
	"github.com/louisbranch/maker-of-life/internal/platform/gitrepo"
	"github.com/louisbranch/maker-of-life/internal/platform/id"
	platformotel "github.com/louisbranch/maker-of-life/internal/platform/otel"
	"github.com/louisbranch/maker-of-life/internal/platform/timeouts"
	"github.com/louisbranch/maker-of-life/internal/storage"
	"github.com/louisbranch/maker-of-life/internal/storage/sqlite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = platformotel.InstrumentationName + "/lifecycle"

// Run executes the lifecycle command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	var ledger closableRunStore
	if path := strings.TrimSpace(cfg.DBPath); path != "" {
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		ledger = store
	}
	if cfg.reporting() {
		defer closeLedger(ledger, errOut)
		if runID := strings.TrimSpace(cfg.ReportRun); runID != "" {
			return showRun(ctx, ledger, runID, cfg.JSONOutput, out)
		}
		return runReport(ctx, ledger, cfg.ReportLimit, cfg.JSONOutput, out)
	}

	host, err := github.NewClient(ctx, github.Config{
		BaseURL: cfg.APIURL,
		Token:   cfg.Token,
		Owner:   cfg.Owner,
		Repo:    cfg.Repo,
	})
	if err != nil {
		closeLedger(ledger, errOut)
		return err
	}
	repo, err := gitrepo.New(gitrepo.Config{
		Path:     cfg.LocalPath,
		URL:      cfg.remoteURL(),
		Username: cfg.Username,
		Token:    cfg.Token,
	})
	if err != nil {
		closeLedger(ledger, errOut)
		return err
	}

	return runWithDeps(ctx, cfg, deps{
		host:   host,
		repo:   repo,
		ledger: ledger,
		now:    time.Now,
		newID:  id.NewID,
	}, out, errOut)
}

func runWithDeps(ctx context.Context, cfg Config, d deps, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if d.ledger != nil {
		defer closeLedger(d.ledger, errOut)
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = id.NewID
	}
	if d.host == nil || d.repo == nil {
		return fmt.Errorf("repository collaborators are not configured")
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	startedAt := d.now().UTC()
	anchor, err := cfg.anchor(startedAt)
	if err != nil {
		return err
	}
	frame := grid.NewFrame(anchor, cfg.Width)
	tracer := otel.Tracer(tracerName)

	result := runResult{
		Repository:  cfg.Owner + "/" + cfg.Repo,
		Anchor:      anchor.Format(time.DateOnly),
		Width:       cfg.Width,
		Generations: cfg.Generations,
		DryRun:      cfg.DryRun,
	}
	var warnings []string

	info, err := prepare(ctx, tracer, d)
	if err != nil {
		return err
	}
	result.Branch = info.DefaultBranch
	if info.FullName != "" {
		result.Repository = info.FullName
	}

	spanCtx, span := tracer.Start(ctx, "lifecycle.history",
		trace.WithAttributes(attribute.String("branch", info.DefaultBranch)))
	history, err := d.repo.CommitDates(spanCtx, info.DefaultBranch)
	endSpan(span, err)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	result.History = len(history)

	spanCtx, span = tracer.Start(ctx, "lifecycle.seeds")
	issues, err := d.host.OpenIssues(spanCtx)
	endSpan(span, err)
	if err != nil {
		return fmt.Errorf("read seed issues: %w", err)
	}
	seedDates, seedErrs := grid.ParseObservations(splitCSV(cfg.SeedDates))
	for _, seedErr := range seedErrs {
		warnings = append(warnings, seedErr.Error())
	}
	result.Rejected = len(seedErrs)

	observations := make([]time.Time, 0, len(history)+len(issues)+len(seedDates))
	observations = append(observations, history...)
	for _, issue := range issues {
		observations = append(observations, issue.CreatedAt)
	}
	observations = append(observations, seedDates...)
	result.Seeds = len(issues) + len(seedDates)
	for _, date := range observations {
		if !frame.Contains(date) {
			result.Dropped++
		}
	}

	seed := frame.Build(observations)
	next := life.Advance(seed, cfg.Generations)
	events := schedule.Render(next, frame, schedule.Identity{
		Name:    cfg.CommitName,
		Email:   cfg.CommitEmail,
		Message: cfg.CommitMessage,
	})
	result.LiveBefore = seed.LiveCount()
	result.LiveAfter = next.LiveCount()
	result.Events = len(events)
	if first, last, ok := schedule.Span(events); ok {
		result.FirstEvent = first.Format(time.DateOnly)
		result.LastEvent = last.Format(time.DateOnly)
	}
	result.Grid = next.String()

	if !cfg.DryRun {
		pushed, err := publish(ctx, tracer, d.repo, info.DefaultBranch, events)
		if err != nil {
			return err
		}
		result.Pushed = pushed
		switch {
		case pushed:
		case result.LiveAfter == 0:
			warnings = append(warnings, "next generation is empty; remote left untouched")
		default:
			warnings = append(warnings, "every live cell falls after the anchor; remote left untouched")
		}
		if cfg.CloseIssues {
			closed, closeWarnings := closeIssues(ctx, tracer, d.host, issues)
			result.ClosedIssues = closed
			warnings = append(warnings, closeWarnings...)
		}
	}

	if d.ledger != nil {
		run := storage.Run{
			Owner:        cfg.Owner,
			Repository:   cfg.Repo,
			Anchor:       anchor,
			StartedAt:    startedAt,
			FinishedAt:   d.now().UTC(),
			Width:        cfg.Width,
			Generations:  cfg.Generations,
			Observations: len(observations),
			Seeds:        result.Seeds,
			Rejected:     result.Rejected,
			Dropped:      result.Dropped,
			LiveBefore:   result.LiveBefore,
			LiveAfter:    result.LiveAfter,
			Events:       result.Events,
			DryRun:       cfg.DryRun,
			Pushed:       result.Pushed,
			ClosedIssues: len(result.ClosedIssues),
			SeedCells:    seed.Cells(),
			NextCells:    next.Cells(),
		}
		if runID, err := recordRun(ctx, d, run); err != nil {
			warnings = append(warnings, err.Error())
		} else {
			result.RunID = runID
		}
	}

	result.Warnings, result.WarningsTotal = capWarnings(warnings, cfg.WarningsCap)
	if cfg.JSONOutput {
		outputJSON(out, errOut, result)
	} else {
		printResult(out, errOut, result)
	}
	return nil
}

// prepare fetches repository metadata while the stale working copy is
// removed. Both must succeed before cloning.
func prepare(ctx context.Context, tracer trace.Tracer, d deps) (github.Repository, error) {
	ctx, span := tracer.Start(ctx, "lifecycle.prepare")
	var info github.Repository
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		repoInfo, err := d.host.Repository(groupCtx)
		if err != nil {
			return fmt.Errorf("fetch repository: %w", err)
		}
		info = repoInfo
		return nil
	})
	group.Go(d.repo.Reset)
	err := group.Wait()
	endSpan(span, err)
	return info, err
}

// publish rebuilds the working copy from events and force-pushes it.
// Nothing is pushed for an empty schedule.
func publish(ctx context.Context, tracer trace.Tracer, repo workingCopy, branch string, events []schedule.Event) (bool, error) {
	if len(events) == 0 {
		return false, nil
	}
	ctx, span := tracer.Start(ctx, "lifecycle.publish", trace.WithAttributes(
		attribute.String("branch", branch),
		attribute.Int("events", len(events)),
	))
	commits := make([]gitrepo.Commit, 0, len(events))
	for _, event := range events {
		commits = append(commits, gitrepo.Commit{
			Message: event.Message,
			Name:    event.AuthorName,
			Email:   event.AuthorEmail,
			When:    event.Date,
		})
	}
	err := repo.Rebuild(ctx, commits)
	if err != nil {
		err = fmt.Errorf("rebuild history: %w", err)
	} else if err = repo.Push(ctx, branch); err != nil {
		err = fmt.Errorf("push history: %w", err)
	}
	endSpan(span, err)
	return err == nil, err
}

// closeIssues closes every seed issue read this run. Failures are reported
// as warnings; an issue left open is simply read again next time.
func closeIssues(ctx context.Context, tracer trace.Tracer, host repositoryHost, issues []github.Issue) ([]closedIssue, []string) {
	if len(issues) == 0 {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "lifecycle.close_issues",
		trace.WithAttributes(attribute.Int("issues", len(issues))))
	defer span.End()

	var closed []closedIssue
	var warnings []string
	for _, issue := range issues {
		if err := host.CloseIssue(ctx, issue.Number); err != nil {
			warnings = append(warnings, fmt.Sprintf("close issue %s: %v", issueLabel(issue.Number, issue.Title), err))
			continue
		}
		closed = append(closed, closedIssue{Number: issue.Number, Title: issue.Title})
	}
	span.SetAttributes(attribute.Int("closed", len(closed)))
	return closed, warnings
}

func recordRun(ctx context.Context, d deps, run storage.Run) (string, error) {
	runID, err := d.newID()
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	run.ID = runID
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ledger)
	defer cancel()
	if err := d.ledger.RecordRun(ctx, run); err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return runID, nil
}

func closeLedger(ledger closableRunStore, errOut io.Writer) {
	if ledger == nil {
		return
	}
	if err := ledger.Close(); err != nil {
		fmt.Fprintf(errOut, "Error: close run ledger: %v\n", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
