package lifecycle

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/maker-of-life/internal/core/grid"
	"github.com/louisbranch/maker-of-life/internal/platform/config"
	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
	"github.com/louisbranch/maker-of-life/internal/platform/github"
)

// Config holds lifecycle command configuration.
type Config struct {
	Owner     string
	Repo      string
	Username  string
	Token     string
	APIURL    string
	RemoteURL string
	LocalPath string
	DBPath    string

	CommitName    string
	CommitEmail   string
	CommitMessage string

	Width       int
	Timeout     time.Duration
	Anchor      string
	Generations int
	SeedDates   string

	DryRun      bool
	CloseIssues bool
	JSONOutput  bool
	WarningsCap int

	Report      bool
	ReportLimit int
	ReportRun   string
}

type envConfig struct {
	Owner         string        `env:"MAKER_OF_LIFE_GITHUB_OWNER" envDefault:"maker-of-life"`
	Repo          string        `env:"MAKER_OF_LIFE_GITHUB_REPO" envDefault:"game-of-life"`
	Username      string        `env:"MAKER_OF_LIFE_GITHUB_USERNAME" envDefault:"maker-of-life"`
	Token         string        `env:"MAKER_OF_LIFE_GITHUB_TOKEN"`
	APIURL        string        `env:"MAKER_OF_LIFE_GITHUB_API_URL"`
	RemoteURL     string        `env:"MAKER_OF_LIFE_GITHUB_REMOTE_URL"`
	LocalPath     string        `env:"MAKER_OF_LIFE_LOCAL_PATH" envDefault:"tmp"`
	DBPath        string        `env:"MAKER_OF_LIFE_DB_PATH" envDefault:"data/lifecycle.db"`
	CommitName    string        `env:"MAKER_OF_LIFE_COMMIT_NAME" envDefault:"Maker of Life"`
	CommitEmail   string        `env:"MAKER_OF_LIFE_COMMIT_EMAIL" envDefault:"maker-of-life@users.noreply.github.com"`
	CommitMessage string        `env:"MAKER_OF_LIFE_COMMIT_MESSAGE" envDefault:"Create life"`
	Width         int           `env:"MAKER_OF_LIFE_GRID_WIDTH" envDefault:"53"`
	Timeout       time.Duration `env:"MAKER_OF_LIFE_TIMEOUT" envDefault:"10m"`
}

// ParseConfig reads environment defaults and parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	return parseConfig(fs, args, nil)
}

// parseConfig reads from environ instead of the process environment when
// environ is non-nil.
func parseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var envCfg envConfig
	var err error
	if environ == nil {
		err = config.ParseEnv(&envCfg)
	} else {
		err = config.ParseEnvFrom(&envCfg, environ)
	}
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Owner:         envCfg.Owner,
		Repo:          envCfg.Repo,
		Username:      envCfg.Username,
		Token:         envCfg.Token,
		APIURL:        envCfg.APIURL,
		RemoteURL:     envCfg.RemoteURL,
		LocalPath:     envCfg.LocalPath,
		DBPath:        envCfg.DBPath,
		CommitName:    envCfg.CommitName,
		CommitEmail:   envCfg.CommitEmail,
		CommitMessage: envCfg.CommitMessage,
		Width:         envCfg.Width,
		Timeout:       envCfg.Timeout,
		Generations:   1,
		CloseIssues:   true,
		WarningsCap:   25,
		ReportLimit:   10,
	}
	if cfg.APIURL == "" {
		cfg.APIURL = github.DefaultBaseURL
	}

	fs.StringVar(&cfg.Owner, "owner", cfg.Owner, "repository owner (default: MAKER_OF_LIFE_GITHUB_OWNER)")
	fs.StringVar(&cfg.Repo, "repo", cfg.Repo, "repository name (default: MAKER_OF_LIFE_GITHUB_REPO)")
	fs.StringVar(&cfg.Username, "username", cfg.Username, "username used to authenticate pushes")
	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "hosted API base URL")
	fs.StringVar(&cfg.RemoteURL, "remote-url", cfg.RemoteURL, "remote to clone and push (default: https://github.com/<owner>/<repo>.git)")
	fs.StringVar(&cfg.LocalPath, "local-path", cfg.LocalPath, "working copy directory; removed on every run")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the run ledger sqlite database (empty disables the ledger)")
	fs.StringVar(&cfg.CommitName, "commit-name", cfg.CommitName, "author name of generated commits")
	fs.StringVar(&cfg.CommitEmail, "commit-email", cfg.CommitEmail, "author email of generated commits")
	fs.StringVar(&cfg.CommitMessage, "commit-message", cfg.CommitMessage, "message of generated commits")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "grid width in weeks")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	fs.StringVar(&cfg.Anchor, "anchor", "", "anchor day as YYYY-MM-DD (default: today in UTC)")
	fs.IntVar(&cfg.Generations, "generations", cfg.Generations, "generations to advance")
	fs.StringVar(&cfg.SeedDates, "seed-dates", "", "comma-separated extra seed observations")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "compute the next generation without touching the remote")
	fs.BoolVar(&cfg.CloseIssues, "close-issues", cfg.CloseIssues, "close seed issues once their dates are consumed")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.IntVar(&cfg.WarningsCap, "warnings-cap", cfg.WarningsCap, "max warnings to print (0 = no limit)")
	fs.BoolVar(&cfg.Report, "report", false, "list recent runs from the ledger instead of running")
	fs.IntVar(&cfg.ReportLimit, "report-limit", cfg.ReportLimit, "max runs to list with -report")
	fs.StringVar(&cfg.ReportRun, "report-run", "", "show one recorded run with its grids instead of running")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// remoteURL returns the configured remote or the public clone URL.
func (c Config) remoteURL() string {
	if remote := strings.TrimSpace(c.RemoteURL); remote != "" {
		return remote
	}
	return fmt.Sprintf("https://github.com/%s/%s.git", strings.TrimSpace(c.Owner), strings.TrimSpace(c.Repo))
}

// reporting reports whether the command reads the ledger instead of running.
func (c Config) reporting() bool {
	return c.Report || strings.TrimSpace(c.ReportRun) != ""
}

// validate checks everything that can be checked before any I/O.
func (c Config) validate() error {
	if c.reporting() {
		if strings.TrimSpace(c.DBPath) == "" {
			return fmt.Errorf("-report and -report-run require -db-path")
		}
		if strings.TrimSpace(c.ReportRun) == "" && c.ReportLimit <= 0 {
			return fmt.Errorf("-report-limit must be > 0")
		}
		return nil
	}
	if strings.TrimSpace(c.Owner) == "" {
		return fmt.Errorf("repository owner is required")
	}
	if strings.TrimSpace(c.Repo) == "" {
		return fmt.Errorf("repository name is required")
	}
	if strings.TrimSpace(c.LocalPath) == "" {
		return fmt.Errorf("-local-path is required")
	}
	if c.Width <= 0 {
		return apperrors.WithMetadata(apperrors.CodeInvalidWidth,
			fmt.Sprintf("grid width must be > 0, got %d", c.Width),
			map[string]string{"width": fmt.Sprint(c.Width)})
	}
	if c.Generations < 0 {
		return apperrors.WithMetadata(apperrors.CodeNegativeGenerations,
			fmt.Sprintf("generations must be >= 0, got %d", c.Generations),
			map[string]string{"generations": fmt.Sprint(c.Generations)})
	}
	if _, err := c.anchor(time.Time{}); err != nil {
		return err
	}
	if !c.DryRun && strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("MAKER_OF_LIFE_GITHUB_TOKEN is required unless -dry-run is set")
	}
	if c.WarningsCap < 0 {
		return fmt.Errorf("-warnings-cap must be >= 0")
	}
	return nil
}

// anchor resolves the configured anchor day, falling back to now.
func (c Config) anchor(now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Anchor)
	if raw == "" {
		return grid.Midnight(now), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, apperrors.WrapWithMetadata(apperrors.CodeInvalidAnchor,
			fmt.Sprintf("parse anchor %q", raw),
			map[string]string{"anchor": raw},
			err)
	}
	return day, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
