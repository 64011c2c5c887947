package bitbucket

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

const (
	defaultBaseURL = "https://api.bitbucket.org"
	defaultTimeout = 30 * time.Second

	// commitPageLen is used when fetching a pull request's commit list;
	// one maximal page covers any reasonably sized pull request.
	commitPageLen = MaxPageLen
)

// ClientConfig carries everything the client needs; all of it comes from
// process configuration, never from caller-supplied data.
type ClientConfig struct {
	Username    string
	AppPassword string
	Workspace   string
	RepoSlug    string
	BaseURL     string
	Timeout     time.Duration
	Logger      httpx.Logger
}

// Client is an HTTP client for the Bitbucket Cloud API 2.0, scoped to one
// repository. It performs no retries: every remote failure is reported
// once, immediately.
type Client struct {
	baseURL    string
	workspace  string
	repoSlug   string
	authHeader string
	httpClient *http.Client
	logger     httpx.Logger
}

// NewClient creates a Bitbucket client. The Basic Authorization header is
// computed once here from the configured workspace/account pair.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	credentials := cfg.Username + ":" + cfg.AppPassword
	return &Client{
		baseURL:    baseURL,
		workspace:  cfg.Workspace,
		repoSlug:   cfg.RepoSlug,
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// repoPath builds an absolute URL under the repository's base path.
func (c *Client) repoPath(parts ...string) string {
	p := fmt.Sprintf("%s/2.0/repositories/%s/%s", c.baseURL, c.workspace, c.repoSlug)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// ListPullRequestsOptions filters and pages the pull request listing.
// An empty State uses Bitbucket's default (open pull requests only).
type ListPullRequestsOptions struct {
	State        string
	SourceBranch string
	TargetBranch string
	Page         PageParams
}

// ListPullRequests fetches one page of pull requests.
func (c *Client) ListPullRequests(ctx context.Context, opts ListPullRequestsOptions) (domain.Page[domain.PullRequest], error) {
	if opts.Page == (PageParams{}) {
		opts.Page = DefaultPageParams()
	}

	q := url.Values{}
	opts.Page.apply(q)
	if opts.State != "" {
		q.Set("state", opts.State)
	}
	var filters []string
	if opts.SourceBranch != "" {
		filters = append(filters, fmt.Sprintf("source.branch.name = %q", opts.SourceBranch))
	}
	if opts.TargetBranch != "" {
		filters = append(filters, fmt.Sprintf("destination.branch.name = %q", opts.TargetBranch))
	}
	if len(filters) > 0 {
		q.Set("q", strings.Join(filters, " AND "))
	}

	var env apiEnvelope[apiPullRequest]
	if err := c.getJSON(ctx, "list_pull_requests", c.repoPath("pullrequests")+"?"+q.Encode(), &env); err != nil {
		return domain.Page[domain.PullRequest]{}, err
	}

	values := make([]domain.PullRequest, 0, len(env.Values))
	for _, api := range env.Values {
		pr, err := mapPullRequest(api)
		if err != nil {
			return domain.Page[domain.PullRequest]{}, fmt.Errorf("list_pull_requests: %w", err)
		}
		values = append(values, pr)
	}
	return toPage(env, values), nil
}

// GetPullRequest fetches a single pull request by id.
func (c *Client) GetPullRequest(ctx context.Context, id int) (domain.PullRequest, error) {
	var api apiPullRequest
	if err := c.getJSON(ctx, "get_pull_request", c.repoPath("pullrequests", strconv.Itoa(id)), &api); err != nil {
		return domain.PullRequest{}, err
	}
	pr, err := mapPullRequest(api)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("get_pull_request: %w", err)
	}
	return pr, nil
}

// ListCommits fetches the commit list of a pull request.
func (c *Client) ListCommits(ctx context.Context, prID int) ([]domain.Commit, error) {
	q := url.Values{}
	q.Set("pagelen", strconv.Itoa(commitPageLen))

	var env apiEnvelope[apiCommit]
	u := c.repoPath("pullrequests", strconv.Itoa(prID), "commits") + "?" + q.Encode()
	if err := c.getJSON(ctx, "list_commits", u, &env); err != nil {
		return nil, err
	}

	commits := make([]domain.Commit, 0, len(env.Values))
	for _, api := range env.Values {
		commits = append(commits, mapCommit(api))
	}
	return commits, nil
}

// GetPullRequestDiff fetches the consolidated diff of a pull request as
// raw unified diff text.
func (c *Client) GetPullRequestDiff(ctx context.Context, prID int) (string, error) {
	data, err := c.do(ctx, "get_pull_request_diff", http.MethodGet,
		c.repoPath("pullrequests", strconv.Itoa(prID), "diff"), nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetCommitDiff fetches the diff introduced by a single commit as raw
// unified diff text.
func (c *Client) GetCommitDiff(ctx context.Context, hash string) (string, error) {
	data, err := c.do(ctx, "get_commit_diff", http.MethodGet, c.repoPath("diff", hash), nil)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetCommit fetches a single commit by hash.
func (c *Client) GetCommit(ctx context.Context, hash string) (domain.Commit, error) {
	var api apiCommit
	if err := c.getJSON(ctx, "get_commit", c.repoPath("commit", hash), &api); err != nil {
		return domain.Commit{}, err
	}
	return mapCommit(api), nil
}

// ListComments fetches one page of a pull request's comments, general and
// inline normalized into one shape. Comments Bitbucket marks deleted are
// skipped.
func (c *Client) ListComments(ctx context.Context, prID int, page PageParams) (domain.Page[domain.Comment], error) {
	if page == (PageParams{}) {
		page = DefaultPageParams()
	}
	q := url.Values{}
	page.apply(q)

	var env apiEnvelope[apiComment]
	u := c.repoPath("pullrequests", strconv.Itoa(prID), "comments") + "?" + q.Encode()
	if err := c.getJSON(ctx, "list_comments", u, &env); err != nil {
		return domain.Page[domain.Comment]{}, err
	}

	values := make([]domain.Comment, 0, len(env.Values))
	for _, api := range env.Values {
		if api.Deleted {
			continue
		}
		values = append(values, mapComment(api))
	}
	return toPage(env, values), nil
}

// AddComment creates a comment on a pull request. A nil inline anchor
// creates a general comment. The returned comment is mapped from
// Bitbucket's response, not re-derived locally, so the caller sees
// exactly what was persisted.
func (c *Client) AddComment(ctx context.Context, prID int, content string, inline *domain.InlineAnchor) (domain.Comment, error) {
	operation := "add_comment"
	reqBody := createCommentRequest{Content: apiRendered{Raw: content}}
	if inline != nil {
		operation = "add_inline_comment"
		reqBody.Inline = &apiInline{
			Path: inline.Path,
			From: inline.FromLine,
			To:   inline.ToLine,
		}
	}

	data, err := c.do(ctx, operation, http.MethodPost,
		c.repoPath("pullrequests", strconv.Itoa(prID), "comments"), reqBody)
	if err != nil {
		return domain.Comment{}, err
	}

	var api apiComment
	if err := json.Unmarshal(data, &api); err != nil {
		return domain.Comment{}, fmt.Errorf("%s: parse response: %w", operation, err)
	}
	return mapComment(api), nil
}

// ListPipelinesOptions filters and pages the pipeline listing.
type ListPipelinesOptions struct {
	TargetBranch string
	Page         PageParams
	Sort         string
}

// ListPipelines fetches one page of pipeline runs, most recent first
// unless a sort is given.
func (c *Client) ListPipelines(ctx context.Context, opts ListPipelinesOptions) (domain.Page[RawPipeline], error) {
	if opts.Page == (PageParams{}) {
		opts.Page = DefaultPageParams()
	}

	q := url.Values{}
	opts.Page.apply(q)
	sort := opts.Sort
	if sort == "" {
		sort = "-created_on"
	}
	q.Set("sort", sort)
	if opts.TargetBranch != "" {
		q.Set("target.branch", opts.TargetBranch)
	}

	var env apiEnvelope[apiPipeline]
	// The pipelines collection endpoint requires the trailing slash.
	if err := c.getJSON(ctx, "list_pipelines", c.repoPath("pipelines", "")+"?"+q.Encode(), &env); err != nil {
		return domain.Page[RawPipeline]{}, err
	}

	values := make([]RawPipeline, 0, len(env.Values))
	for _, api := range env.Values {
		values = append(values, mapPipeline(api))
	}
	return toPage(env, values), nil
}

// getJSON issues a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, operation, rawURL string, out any) error {
	data, err := c.do(ctx, operation, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", operation, err)
	}
	return nil
}

// do executes one authenticated request and returns the response body.
// Non-2xx responses are mapped to a typed error carrying the status code
// and the remote body verbatim.
func (c *Client) do(ctx context.Context, operation, method, rawURL string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", operation, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	if c.logger != nil {
		c.logger.LogRequest(ctx, httpx.RequestLog{Method: method, URL: rawURL, Timestamp: start})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		mapped := mapTransportError(operation, err)
		c.logFailure(ctx, operation, mapped, 0, time.Since(start))
		return nil, mapped
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", operation, err)
	}

	if c.logger != nil {
		c.logger.LogResponse(ctx, httpx.ResponseLog{
			Method:     method,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Duration:   time.Since(start),
			Timestamp:  time.Now(),
		})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		mapped := mapHTTPError(operation, resp.StatusCode, data)
		c.logFailure(ctx, operation, mapped, resp.StatusCode, time.Since(start))
		return nil, mapped
	}
	return data, nil
}

func (c *Client) logFailure(ctx context.Context, operation string, err error, statusCode int, duration time.Duration) {
	if c.logger == nil {
		return
	}
	c.logger.LogError(ctx, httpx.ErrorLog{
		Operation:  operation,
		Timestamp:  time.Now(),
		Duration:   duration,
		Error:      err,
		StatusCode: statusCode,
	})
}
