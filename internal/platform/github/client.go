// Package github wraps the hosted repository API used by the lifecycle job:
// repository metadata, open seed issues and closing consumed issues.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v68/github"
	apperrors "github.com/louisbranch/maker-of-life/internal/platform/errors"
	"github.com/louisbranch/maker-of-life/internal/platform/timeouts"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.github.com/"

const issuesPerPage = 100

// Config describes one repository on the hosted API.
type Config struct {
	BaseURL string
	Token   string
	Owner   string
	Repo    string
	// HTTPClient is the base transport. http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Repository is the metadata the job needs before cloning.
type Repository struct {
	FullName      string
	DefaultBranch string
}

// Issue is an open issue used as a seed observation.
type Issue struct {
	Number    int
	Title     string
	CreatedAt time.Time
}

// Client talks to the hosted API on behalf of one repository.
type Client struct {
	api   *gogithub.Client
	owner string
	repo  string
}

// NewClient builds a client. A token, when present, is sent as an OAuth2
// bearer token on every request.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	owner := strings.TrimSpace(cfg.Owner)
	repo := strings.TrimSpace(cfg.Repo)
	if owner == "" {
		return nil, fmt.Errorf("repository owner is required")
	}
	if repo == "" {
		return nil, fmt.Errorf("repository name is required")
	}

	httpClient := cfg.HTTPClient
	if token := strings.TrimSpace(cfg.Token); token != "" {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	api := gogithub.NewClient(httpClient)

	if raw := strings.TrimSpace(cfg.BaseURL); raw != "" {
		baseURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse api url: %w", err)
		}
		if baseURL.Scheme == "" || baseURL.Host == "" {
			return nil, fmt.Errorf("api url %q must be absolute", raw)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		api.BaseURL = baseURL
	}
	return &Client{api: api, owner: owner, repo: repo}, nil
}

// Repository fetches repository metadata.
func (c *Client) Repository(ctx context.Context) (Repository, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.HostingRequest)
	defer cancel()

	repo, _, err := c.api.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return Repository{}, c.classify("get repository", err)
	}
	info := Repository{
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
	}
	if info.DefaultBranch == "" {
		info.DefaultBranch = "main"
	}
	return info, nil
}

// OpenIssues lists every open issue, oldest first as the API returns them
// when sorted by creation. Pull requests are skipped.
func (c *Client) OpenIssues(ctx context.Context) ([]Issue, error) {
	opts := &gogithub.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gogithub.ListOptions{PerPage: issuesPerPage},
	}
	var issues []Issue
	for {
		page, resp, err := c.listIssuesPage(ctx, opts)
		if err != nil {
			return nil, err
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, Issue{
				Number:    issue.GetNumber(),
				Title:     issue.GetTitle(),
				CreatedAt: issue.GetCreatedAt().Time,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			return issues, nil
		}
		opts.Page = resp.NextPage
	}
}

// CloseIssue marks one issue as closed.
func (c *Client) CloseIssue(ctx context.Context, number int) error {
	if number <= 0 {
		return fmt.Errorf("issue number must be greater than zero")
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.HostingRequest)
	defer cancel()

	_, _, err := c.api.Issues.Edit(ctx, c.owner, c.repo, number, &gogithub.IssueRequest{
		State: gogithub.Ptr("closed"),
	})
	if err != nil {
		return c.classify(fmt.Sprintf("close issue #%d", number), err)
	}
	return nil
}

func (c *Client) listIssuesPage(ctx context.Context, opts *gogithub.IssueListByRepoOptions) ([]*gogithub.Issue, *gogithub.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.HostingRequest)
	defer cancel()

	page, resp, err := c.api.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
	if err != nil {
		return nil, nil, c.classify("list issues", err)
	}
	return page, resp, nil
}

func (c *Client) classify(op string, err error) error {
	metadata := map[string]string{"owner": c.owner, "repo": c.repo}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var rateErr *gogithub.RateLimitError
	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.WrapWithMetadata(apperrors.CodeHostingUnavailable, op, metadata, err)
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode
		switch {
		case status == http.StatusNotFound:
			return apperrors.WrapWithMetadata(apperrors.CodeRepositoryNotFound, op, metadata, err)
		case status >= http.StatusInternalServerError:
			return apperrors.WrapWithMetadata(apperrors.CodeHostingUnavailable, op, metadata, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
