package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
	"github.com/louisbranch/maker-of-life/internal/storage"
)

func TestCapWarnings(t *testing.T) {
	t.Parallel()

	warnings := []string{"a", "b", "c"}
	if got, total := capWarnings(warnings, 0); total != 3 || len(got) != 3 {
		t.Fatalf("expected all warnings, got %v (total=%d)", got, total)
	}
	if got, total := capWarnings(warnings, 2); total != 3 || len(got) != 2 {
		t.Fatalf("expected capped warnings, got %v (total=%d)", got, total)
	}
}

func ledgerWithRuns() *fakeLedger {
	started := time.Date(2024, time.June, 10, 6, 0, 0, 0, time.UTC)
	return &fakeLedger{runs: []storage.Run{
		{
			ID:         "older",
			Owner:      "maker-of-life",
			Repository: "game-of-life",
			Anchor:     time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC),
			StartedAt:  started,
			FinishedAt: started.Add(1500 * time.Millisecond),
			LiveBefore: 4,
			LiveAfter:  4,
			Events:     4,
			Pushed:     true,
		},
		{
			ID:         "newer",
			Owner:      "maker-of-life",
			Repository: "game-of-life",
			Anchor:     time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC),
			StartedAt:  started.AddDate(0, 0, 1),
			FinishedAt: started.AddDate(0, 0, 1),
			LiveBefore: 4,
			DryRun:     true,
		},
	}}
}

func TestRunReportText(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := runReport(context.Background(), ledgerWithRuns(), 5, false, &out); err != nil {
		t.Fatalf("run report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "- newer maker-of-life/game-of-life anchor=2024-06-11") || !strings.Contains(lines[1], "status=dry-run") {
		t.Fatalf("first run line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "live=4->4 events=4 status=pushed") {
		t.Fatalf("second run line = %q", lines[2])
	}
}

func TestRunReportJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := runReport(context.Background(), ledgerWithRuns(), 1, true, &out); err != nil {
		t.Fatalf("run report: %v", err)
	}
	var entries []ledgerEntry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "newer" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Repository != "maker-of-life/game-of-life" || !entries[0].DryRun {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestRunReportErrors(t *testing.T) {
	t.Parallel()

	if err := runReport(context.Background(), nil, 5, false, &bytes.Buffer{}); err == nil {
		t.Fatal("expected missing ledger error")
	}
	if err := runReport(context.Background(), &fakeLedger{}, 0, false, &bytes.Buffer{}); err == nil {
		t.Fatal("expected limit error")
	}
	ledger := &fakeLedger{listErr: errors.New("disk I/O error")}
	if err := runReport(context.Background(), ledger, 5, false, &bytes.Buffer{}); err == nil || !strings.Contains(err.Error(), "list runs") {
		t.Fatalf("err = %v, want list failure", err)
	}
}

func TestToLedgerEntryDuration(t *testing.T) {
	t.Parallel()

	entry := toLedgerEntry(ledgerWithRuns().runs[0])
	if entry.Duration != "1.5s" {
		t.Fatalf("duration = %q, want 1.5s", entry.Duration)
	}
	if entry.StartedAt != "2024-06-10T06:00:00Z" {
		t.Fatalf("started at = %q", entry.StartedAt)
	}
}

func TestPrintResultReportsSkippedPush(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	printResult(&out, &errOut, runResult{
		Repository: "maker-of-life/game-of-life",
		Anchor:     "2024-06-11",
		Warnings:   []string{"next generation is empty; remote left untouched"},
		Grid:       ".\n.\n.\n.\n.\n.\n.\n",
	})
	if !strings.Contains(out.String(), "Events: none") || !strings.Contains(out.String(), "Nothing pushed") {
		t.Fatalf("output = %q", out.String())
	}
	if errOut.String() != "Warning: next generation is empty; remote left untouched\n" {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func ledgerWithGrids() *fakeLedger {
	ledger := ledgerWithRuns()
	seed := grid.Generate(3, func(column, row int) int {
		if row == 2 {
			return 1
		}
		return 0
	})
	next := grid.Generate(3, func(column, row int) int {
		if column == 1 && row >= 1 && row <= 3 {
			return 1
		}
		return 0
	})
	ledger.runs[0].Width = 3
	ledger.runs[0].Generations = 1
	ledger.runs[0].SeedCells = seed.Cells()
	ledger.runs[0].NextCells = next.Cells()
	return ledger
}

func TestShowRunText(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := showRun(context.Background(), ledgerWithGrids(), "older", false, &out); err != nil {
		t.Fatalf("show run: %v", err)
	}
	output := out.String()
	for _, fragment := range []string{
		"Run older for maker-of-life/game-of-life on 2024-06-10 (generations=1)",
		"events=4 status=pushed",
		"Seed:\n",
		"Next:\n",
	} {
		if !strings.Contains(output, fragment) {
			t.Fatalf("output missing %q:\n%s", fragment, output)
		}
	}
	// Header lines plus a seven-row grid for each of seed and next.
	if lines := strings.Count(output, "\n"); lines != 5+2*grid.Rows {
		t.Fatalf("lines = %d:\n%s", lines, output)
	}
}

func TestShowRunJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := showRun(context.Background(), ledgerWithGrids(), "older", true, &out); err != nil {
		t.Fatalf("show run: %v", err)
	}
	var detail runDetail
	if err := json.Unmarshal(out.Bytes(), &detail); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if detail.ID != "older" || !detail.Pushed || detail.Generations != 1 {
		t.Fatalf("detail = %+v", detail)
	}
	if strings.Count(detail.Seed, "\n") != grid.Rows || detail.Seed == detail.Next {
		t.Fatalf("grids = %q / %q", detail.Seed, detail.Next)
	}
}

func TestShowRunErrors(t *testing.T) {
	t.Parallel()

	if err := showRun(context.Background(), nil, "older", false, &bytes.Buffer{}); err == nil {
		t.Fatal("expected missing ledger error")
	}
	err := showRun(context.Background(), ledgerWithGrids(), "missing", false, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), `run "missing" not found`) {
		t.Fatalf("err = %v, want not found", err)
	}
	ledger := ledgerWithGrids()
	ledger.getErr = errors.New("disk I/O error")
	if err := showRun(context.Background(), ledger, "older", false, &bytes.Buffer{}); err == nil || !strings.Contains(err.Error(), "get run") {
		t.Fatalf("err = %v, want get failure", err)
	}
	// The newer run was recorded without grids.
	if err := showRun(context.Background(), ledgerWithGrids(), "newer", false, &bytes.Buffer{}); err == nil || !strings.Contains(err.Error(), "decode seed grid") {
		t.Fatalf("err = %v, want decode failure", err)
	}
}
