package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
	"github.com/louisbranch/maker-of-life/internal/platform/timeouts"
	"github.com/louisbranch/maker-of-life/internal/storage"
)

type runResult struct {
	RunID         string        `json:"run_id,omitempty"`
	Repository    string        `json:"repository"`
	Branch        string        `json:"branch"`
	Anchor        string        `json:"anchor"`
	Width         int           `json:"width"`
	Generations   int           `json:"generations"`
	History       int           `json:"history"`
	Seeds         int           `json:"seeds"`
	Rejected      int           `json:"rejected"`
	Dropped       int           `json:"dropped"`
	LiveBefore    int           `json:"live_before"`
	LiveAfter     int           `json:"live_after"`
	Events        int           `json:"events"`
	FirstEvent    string        `json:"first_event,omitempty"`
	LastEvent     string        `json:"last_event,omitempty"`
	DryRun        bool          `json:"dry_run"`
	Pushed        bool          `json:"pushed"`
	ClosedIssues  []closedIssue `json:"closed_issues,omitempty"`
	Grid          string        `json:"grid"`
	Warnings      []string      `json:"warnings,omitempty"`
	WarningsTotal int           `json:"warnings_total,omitempty"`
}

type closedIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// runDetail is one ledger entry with the grids it recorded.
type runDetail struct {
	ledgerEntry
	Generations int    `json:"generations"`
	Rejected    int    `json:"rejected"`
	Dropped     int    `json:"dropped"`
	Seed        string `json:"seed"`
	Next        string `json:"next"`
}

type ledgerEntry struct {
	ID           string `json:"id"`
	Repository   string `json:"repository"`
	Anchor       string `json:"anchor"`
	StartedAt    string `json:"started_at"`
	Duration     string `json:"duration"`
	Observations int    `json:"observations"`
	Seeds        int    `json:"seeds"`
	LiveBefore   int    `json:"live_before"`
	LiveAfter    int    `json:"live_after"`
	Events       int    `json:"events"`
	DryRun       bool   `json:"dry_run"`
	Pushed       bool   `json:"pushed"`
	ClosedIssues int    `json:"closed_issues"`
}

func capWarnings(warnings []string, limit int) ([]string, int) {
	total := len(warnings)
	if limit == 0 || total <= limit {
		return warnings, total
	}
	return warnings[:limit], total
}

func outputJSON(out io.Writer, errOut io.Writer, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}

func printResult(out io.Writer, errOut io.Writer, result runResult) {
	for _, warning := range result.Warnings {
		fmt.Fprintf(errOut, "Warning: %s\n", warning)
	}
	if result.WarningsTotal > len(result.Warnings) {
		fmt.Fprintf(errOut, "Warning: %d more warnings suppressed\n", result.WarningsTotal-len(result.Warnings))
	}

	fmt.Fprintf(out, "Generation for %s on %s (width=%d generations=%d)\n",
		result.Repository, result.Anchor, result.Width, result.Generations)
	fmt.Fprintf(out, "Observations: history=%d seeds=%d rejected=%d dropped=%d\n",
		result.History, result.Seeds, result.Rejected, result.Dropped)
	fmt.Fprintf(out, "Live cells: %d -> %d\n", result.LiveBefore, result.LiveAfter)
	if result.Events > 0 {
		fmt.Fprintf(out, "Events: %d (%s .. %s)\n", result.Events, result.FirstEvent, result.LastEvent)
	} else {
		fmt.Fprintln(out, "Events: none")
	}
	switch {
	case result.DryRun:
		fmt.Fprintln(out, "Dry run: nothing pushed")
	case result.Pushed:
		fmt.Fprintf(out, "Pushed to %s\n", result.Branch)
	default:
		fmt.Fprintln(out, "Nothing pushed")
	}
	if len(result.ClosedIssues) > 0 {
		labels := make([]string, 0, len(result.ClosedIssues))
		for _, issue := range result.ClosedIssues {
			labels = append(labels, issueLabel(issue.Number, issue.Title))
		}
		fmt.Fprintf(out, "Closed issues: %s\n", strings.Join(labels, ", "))
	}
	if result.RunID != "" {
		fmt.Fprintf(out, "Run: %s\n", result.RunID)
	}
	fmt.Fprint(out, result.Grid)
}

func runReport(ctx context.Context, ledger storage.RunStore, limit int, jsonOutput bool, out io.Writer) error {
	if ledger == nil {
		return fmt.Errorf("run ledger is not configured")
	}
	if limit <= 0 {
		return fmt.Errorf("report limit must be > 0")
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ledger)
	defer cancel()

	runs, err := ledger.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if jsonOutput {
		entries := make([]ledgerEntry, 0, len(runs))
		for _, run := range runs {
			entries = append(entries, toLedgerEntry(run))
		}
		encoded, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("encode run report: %w", err)
		}
		fmt.Fprintln(out, string(encoded))
		return nil
	}

	fmt.Fprintf(out, "Runs (limit=%d):\n", limit)
	if len(runs) == 0 {
		fmt.Fprintln(out, "  none")
		return nil
	}
	for _, run := range runs {
		entry := toLedgerEntry(run)
		fmt.Fprintf(out, "- %s %s anchor=%s live=%d->%d events=%d status=%s started_at=%s\n",
			entry.ID,
			entry.Repository,
			entry.Anchor,
			entry.LiveBefore,
			entry.LiveAfter,
			entry.Events,
			runStatus(entry),
			entry.StartedAt,
		)
	}
	return nil
}

// showRun prints one recorded run with its seed and next grids.
func showRun(ctx context.Context, ledger storage.RunStore, runID string, jsonOutput bool, out io.Writer) error {
	if ledger == nil {
		return fmt.Errorf("run ledger is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ledger)
	defer cancel()

	run, err := ledger.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("run %q not found", runID)
		}
		return fmt.Errorf("get run: %w", err)
	}
	seed, err := grid.FromCells(run.SeedCells)
	if err != nil {
		return fmt.Errorf("decode seed grid of run %s: %w", run.ID, err)
	}
	next, err := grid.FromCells(run.NextCells)
	if err != nil {
		return fmt.Errorf("decode next grid of run %s: %w", run.ID, err)
	}
	detail := runDetail{
		ledgerEntry: toLedgerEntry(run),
		Generations: run.Generations,
		Rejected:    run.Rejected,
		Dropped:     run.Dropped,
		Seed:        seed.String(),
		Next:        next.String(),
	}
	if jsonOutput {
		encoded, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("encode run: %w", err)
		}
		fmt.Fprintln(out, string(encoded))
		return nil
	}

	fmt.Fprintf(out, "Run %s for %s on %s (generations=%d)\n", detail.ID, detail.Repository, detail.Anchor, detail.Generations)
	fmt.Fprintf(out, "Observations: %d seeds=%d rejected=%d dropped=%d\n", detail.Observations, detail.Seeds, detail.Rejected, detail.Dropped)
	fmt.Fprintf(out, "Live cells: %d -> %d, events=%d status=%s\n", detail.LiveBefore, detail.LiveAfter, detail.Events, runStatus(detail.ledgerEntry))
	fmt.Fprintln(out, "Seed:")
	fmt.Fprint(out, detail.Seed)
	fmt.Fprintln(out, "Next:")
	fmt.Fprint(out, detail.Next)
	return nil
}

func runStatus(entry ledgerEntry) string {
	switch {
	case entry.DryRun:
		return "dry-run"
	case !entry.Pushed:
		return "skipped"
	}
	return "pushed"
}

func issueLabel(number int, title string) string {
	if title == "" {
		return fmt.Sprintf("#%d", number)
	}
	return fmt.Sprintf("#%d %q", number, title)
}

func toLedgerEntry(run storage.Run) ledgerEntry {
	repository := run.Repository
	if run.Owner != "" {
		repository = run.Owner + "/" + run.Repository
	}
	return ledgerEntry{
		ID:           run.ID,
		Repository:   repository,
		Anchor:       run.Anchor.UTC().Format(time.DateOnly),
		StartedAt:    run.StartedAt.UTC().Format(time.RFC3339),
		Duration:     run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
		Observations: run.Observations,
		Seeds:        run.Seeds,
		LiveBefore:   run.LiveBefore,
		LiveAfter:    run.LiveAfter,
		Events:       run.Events,
		DryRun:       run.DryRun,
		Pushed:       run.Pushed,
		ClosedIssues: run.ClosedIssues,
	}
}
