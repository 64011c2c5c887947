// Package resolve turns a pull request selector into exactly one pull
// request record.
package resolve

import (
	"context"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

// Client is the slice of the Bitbucket client the resolver needs.
type Client interface {
	GetPullRequest(ctx context.Context, id int) (domain.PullRequest, error)
	ListPullRequests(ctx context.Context, opts bitbucket.ListPullRequestsOptions) (domain.Page[domain.PullRequest], error)
}

// Resolver resolves a pull request either directly by id or by searching
// for its source branch.
type Resolver struct {
	client Client
}

// NewResolver creates a resolver backed by the given client.
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve produces the pull request the selector identifies. An id
// selector fetches directly and never searches. A branch selector
// searches by source branch name; an empty result set is a normal
// negative outcome reported as found=false with a nil error, and when
// several pull requests share the branch the first in Bitbucket's default
// ordering wins, with no secondary tie-break.
//
// An empty selector is rejected before any network call.
func (r *Resolver) Resolve(ctx context.Context, sel domain.PullRequestSelector) (domain.PullRequest, bool, error) {
	if sel.IsZero() {
		return domain.PullRequest{}, false, httpx.NewInvalidArgumentError(
			"resolve_pull_request", "either pr_id or source_branch must be provided")
	}

	if id, ok := sel.ByID(); ok {
		pr, err := r.client.GetPullRequest(ctx, id)
		if err != nil {
			return domain.PullRequest{}, false, err
		}
		return pr, true, nil
	}

	branch, _ := sel.ByBranch()
	page, err := r.client.ListPullRequests(ctx, bitbucket.ListPullRequestsOptions{
		SourceBranch: branch,
		Page:         bitbucket.DefaultPageParams(),
	})
	if err != nil {
		return domain.PullRequest{}, false, err
	}
	if len(page.Values) == 0 {
		return domain.PullRequest{}, false, nil
	}
	return page.Values[0], true, nil
}
