// Package enrich expands a resolved pull request with derived data:
// per-commit details, diffs, and reviewer approval state.
package enrich

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

// defaultConcurrency bounds the per-commit diff fan-out. The fan-out is
// purely for latency hiding; output order always matches commit order.
const defaultConcurrency = 5

// Client is the slice of the Bitbucket client the engine needs.
type Client interface {
	ListCommits(ctx context.Context, prID int) ([]domain.Commit, error)
	GetCommitDiff(ctx context.Context, hash string) (string, error)
	GetPullRequestDiff(ctx context.Context, prID int) (string, error)
}

// PullRequestDetails is a pull request expanded with its commit list.
type PullRequestDetails struct {
	domain.PullRequest
	Commits []domain.Commit `json:"commits"`
}

// PullRequestWithDiff is a pull request expanded with one consolidated
// diff covering the whole pull request.
type PullRequestWithDiff struct {
	domain.PullRequest
	Diff string `json:"diff,omitempty"`
}

// Engine performs the enrichment fetches.
type Engine struct {
	client      Client
	concurrency int
}

// NewEngine creates an enrichment engine backed by the given client.
func NewEngine(client Client) *Engine {
	return &Engine{client: client, concurrency: defaultConcurrency}
}

// SetConcurrency overrides the diff fan-out limit.
func (e *Engine) SetConcurrency(n int) {
	if n > 0 {
		e.concurrency = n
	}
}

// Details expands a pull request with its commits and, when includeDiff
// is set, each commit's diff.
//
// A failed commit-list fetch degrades to a single placeholder commit
// carrying the failure description: partial success is preferred over
// total failure. A failed per-commit diff fetch is recorded in that
// commit's diff field and does not disturb sibling commits. With
// includeDiff unset, diff fields stay nil and are omitted from the
// payload entirely.
func (e *Engine) Details(ctx context.Context, pr domain.PullRequest, includeDiff bool) (PullRequestDetails, error) {
	commits, err := e.client.ListCommits(ctx, pr.ID)
	if err != nil {
		placeholder := domain.Commit{
			Message: fmt.Sprintf("failed to fetch commits: %v", err),
		}
		return PullRequestDetails{PullRequest: pr, Commits: []domain.Commit{placeholder}}, nil
	}

	if includeDiff {
		e.attachDiffs(ctx, commits)
	}
	return PullRequestDetails{PullRequest: pr, Commits: commits}, nil
}

// attachDiffs fetches each commit's diff concurrently and writes the
// outcome back in commit order. Workers never return an error: a failed
// fetch becomes that item's failure description.
func (e *Engine) attachDiffs(ctx context.Context, commits []domain.Commit) {
	results := make([]domain.Result[string], len(commits))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for i := range commits {
		g.Go(func() error {
			diff, err := e.client.GetCommitDiff(ctx, commits[i].Hash)
			if err != nil {
				results[i] = domain.Fail[string](fmt.Sprintf("failed to fetch diff: %v", err))
				return nil
			}
			results[i] = domain.Ok(diff)
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if res.Failed() {
			desc := res.Err
			commits[i].Diff = &desc
			continue
		}
		diff := res.Value
		commits[i].Diff = &diff
	}
}

// UnifiedDiff expands a pull request with one consolidated diff instead
// of per-commit diffs. A failed diff fetch is embedded as an error string
// in the diff field rather than raising.
func (e *Engine) UnifiedDiff(ctx context.Context, pr domain.PullRequest, includeDiff bool) (PullRequestWithDiff, error) {
	out := PullRequestWithDiff{PullRequest: pr}
	if !includeDiff {
		return out, nil
	}

	diff, err := e.client.GetPullRequestDiff(ctx, pr.ID)
	if err != nil {
		out.Diff = fmt.Sprintf("failed to fetch diff: %v", err)
		return out, nil
	}
	out.Diff = diff
	return out, nil
}
