package lifecycle

import (
	"flag"
	"reflect"
	"testing"
	"time"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
	"github.com/louisbranch/maker-of-life/internal/platform/github"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("lifecycle", flag.ContinueOnError)
	cfg, err := parseConfig(fs, nil, map[string]string{})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Owner != "maker-of-life" || cfg.Repo != "game-of-life" {
		t.Fatalf("repository = %s/%s, want maker-of-life/game-of-life", cfg.Owner, cfg.Repo)
	}
	if cfg.Width != grid.DefaultWidth {
		t.Fatalf("width = %d, want %d", cfg.Width, grid.DefaultWidth)
	}
	if cfg.Timeout != 10*time.Minute {
		t.Fatalf("timeout = %s, want 10m", cfg.Timeout)
	}
	if cfg.Generations != 1 {
		t.Fatalf("generations = %d, want 1", cfg.Generations)
	}
	if !cfg.CloseIssues {
		t.Fatal("expected issues to be closed by default")
	}
	if cfg.APIURL != github.DefaultBaseURL {
		t.Fatalf("api url = %q, want %q", cfg.APIURL, github.DefaultBaseURL)
	}
	if cfg.DBPath != "data/lifecycle.db" {
		t.Fatalf("db path = %q, want data/lifecycle.db", cfg.DBPath)
	}
	if cfg.LocalPath != "tmp" {
		t.Fatalf("local path = %q, want tmp", cfg.LocalPath)
	}
	if cfg.CommitMessage != "Create life" {
		t.Fatalf("commit message = %q", cfg.CommitMessage)
	}
	if cfg.Token != "" {
		t.Fatalf("expected no token by default, got %q", cfg.Token)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Parallel()

	environ := map[string]string{
		"MAKER_OF_LIFE_GITHUB_OWNER": "env-owner",
		"MAKER_OF_LIFE_GITHUB_REPO":  "env-repo",
		"MAKER_OF_LIFE_GITHUB_TOKEN": "env-token",
		"MAKER_OF_LIFE_GRID_WIDTH":   "26",
		"MAKER_OF_LIFE_TIMEOUT":      "90s",
	}
	args := []string{
		"-repo", "flag-repo",
		"-anchor", "2024-06-11",
		"-generations", "3",
		"-seed-dates", "2024-06-01, 2024-06-02",
		"-dry-run",
		"-close-issues=false",
		"-json",
		"-report-run", "run-7",
	}
	fs := flag.NewFlagSet("lifecycle", flag.ContinueOnError)
	cfg, err := parseConfig(fs, args, environ)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Owner != "env-owner" {
		t.Fatalf("owner = %q, want env value", cfg.Owner)
	}
	if cfg.Repo != "flag-repo" {
		t.Fatalf("repo = %q, want flag override", cfg.Repo)
	}
	if cfg.Token != "env-token" {
		t.Fatalf("token = %q, want env value", cfg.Token)
	}
	if cfg.Width != 26 || cfg.Timeout != 90*time.Second {
		t.Fatalf("width/timeout = %d/%s", cfg.Width, cfg.Timeout)
	}
	if cfg.Generations != 3 || cfg.Anchor != "2024-06-11" {
		t.Fatalf("generations/anchor = %d/%q", cfg.Generations, cfg.Anchor)
	}
	if !cfg.DryRun || cfg.CloseIssues || !cfg.JSONOutput {
		t.Fatalf("flags = dry-run %v close-issues %v json %v", cfg.DryRun, cfg.CloseIssues, cfg.JSONOutput)
	}
	if cfg.ReportRun != "run-7" || !cfg.reporting() {
		t.Fatalf("report run = %q (reporting %v)", cfg.ReportRun, cfg.reporting())
	}
}

func TestParseConfigRejectsBadEnv(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("lifecycle", flag.ContinueOnError)
	if _, err := parseConfig(fs, nil, map[string]string{"MAKER_OF_LIFE_GRID_WIDTH": "wide"}); err == nil {
		t.Fatal("expected env parse error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode apperrors.Code
		wantErr  bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "valid dry run without token", mutate: func(c *Config) { c.Token = ""; c.DryRun = true }},
		{name: "zero width", mutate: func(c *Config) { c.Width = 0 }, wantErr: true, wantCode: apperrors.CodeInvalidWidth},
		{name: "negative generations", mutate: func(c *Config) { c.Generations = -1 }, wantErr: true, wantCode: apperrors.CodeNegativeGenerations},
		{name: "malformed anchor", mutate: func(c *Config) { c.Anchor = "06/11/2024" }, wantErr: true, wantCode: apperrors.CodeInvalidAnchor},
		{name: "missing token", mutate: func(c *Config) { c.Token = "" }, wantErr: true},
		{name: "missing owner", mutate: func(c *Config) { c.Owner = " " }, wantErr: true},
		{name: "missing repo", mutate: func(c *Config) { c.Repo = "" }, wantErr: true},
		{name: "missing local path", mutate: func(c *Config) { c.LocalPath = "" }, wantErr: true},
		{name: "negative warnings cap", mutate: func(c *Config) { c.WarningsCap = -1 }, wantErr: true},
		{name: "report without ledger", mutate: func(c *Config) { c.Report = true; c.DBPath = "" }, wantErr: true},
		{name: "report without limit", mutate: func(c *Config) { c.Report = true; c.DBPath = "x.db"; c.ReportLimit = 0 }, wantErr: true},
		{name: "report run without ledger", mutate: func(c *Config) { c.ReportRun = "run-1"; c.DBPath = "" }, wantErr: true},
		{name: "report run ignores limit", mutate: func(c *Config) { c.ReportRun = "run-1"; c.DBPath = "x.db"; c.ReportLimit = 0; c.Token = "" }},
		{name: "report ignores pipeline settings", mutate: func(c *Config) {
			c.Report = true
			c.DBPath = "x.db"
			c.ReportLimit = 5
			c.Width = 0
			c.Token = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantCode != "" && apperrors.GetCode(err) != tt.wantCode {
				t.Fatalf("code = %s, want %s", apperrors.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestAnchorDefaultsToToday(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Anchor = ""
	now := time.Date(2024, time.June, 11, 23, 30, 0, 0, time.UTC)
	got, err := cfg.anchor(now)
	if err != nil {
		t.Fatalf("anchor: %v", err)
	}
	if want := time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("anchor = %s, want %s", got, want)
	}
}

func TestRemoteURL(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	if got := cfg.remoteURL(); got != "https://github.com/maker-of-life/game-of-life.git" {
		t.Fatalf("remote url = %q", got)
	}
	cfg.RemoteURL = "/srv/git/life.git"
	if got := cfg.remoteURL(); got != "/srv/git/life.git" {
		t.Fatalf("remote url = %q, want override", got)
	}
}

func TestSplitCSV(t *testing.T) {
	t.Parallel()

	if got := splitCSV(" a, b ,, "); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected trimmed entries, got %v", got)
	}
	if got := splitCSV(""); len(got) != 0 {
		t.Fatalf("expected no entries, got %v", got)
	}
}
