package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_pull_requests",
		mcp.WithDescription("List pull requests in the configured repository."),
		mcp.WithString("state", mcp.Description("Filter by state: OPEN, MERGED, or DECLINED. Defaults to open pull requests.")),
		mcp.WithNumber("limit", mcp.Description("Page size, 1-100 (default 10).")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1).")),
		mcp.WithString("target_branch", mcp.Description("Only pull requests targeting this destination branch.")),
	), s.handleListPullRequests)

	s.mcp.AddTool(mcp.NewTool("get_pr_details",
		mcp.WithDescription("Get a pull request with its commits and reviewer approval state. Identify it by pr_id or by source_branch (exactly one)."),
		mcp.WithNumber("pr_id", mcp.Description("Pull request id.")),
		mcp.WithString("source_branch", mcp.Description("Source branch name, used when pr_id is not given.")),
		mcp.WithBoolean("include_diff", mcp.Description("Also fetch each commit's diff (default false).")),
	), s.handleGetPRDetails)

	s.mcp.AddTool(mcp.NewTool("get_pr_diff",
		mcp.WithDescription("Get a pull request with one consolidated diff covering all its changes. Identify it by pr_id or by source_branch (exactly one)."),
		mcp.WithNumber("pr_id", mcp.Description("Pull request id.")),
		mcp.WithString("source_branch", mcp.Description("Source branch name, used when pr_id is not given.")),
	), s.handleGetPRDiff)

	s.mcp.AddTool(mcp.NewTool("add_pr_comment",
		mcp.WithDescription("Add a general comment to a pull request."),
		mcp.WithNumber("pr_id", mcp.Required(), mcp.Description("Pull request id.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment text.")),
	), s.handleAddPRComment)

	s.mcp.AddTool(mcp.NewTool("add_pr_inline_comment",
		mcp.WithDescription("Add a comment anchored to a specific file and line in a pull request's diff."),
		mcp.WithNumber("pr_id", mcp.Required(), mcp.Description("Pull request id.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment text.")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path of the file to comment on.")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number in the file.")),
	), s.handleAddPRInlineComment)

	s.mcp.AddTool(mcp.NewTool("view_pr_comments",
		mcp.WithDescription("List a pull request's comments, general and inline, in one unified shape. Identify it by pr_id or by source_branch (exactly one)."),
		mcp.WithNumber("pr_id", mcp.Description("Pull request id.")),
		mcp.WithString("source_branch", mcp.Description("Source branch name, used when pr_id is not given.")),
		mcp.WithNumber("limit", mcp.Description("Page size, 1-100 (default 10).")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1).")),
	), s.handleViewPRComments)

	s.mcp.AddTool(mcp.NewTool("list_pipelines",
		mcp.WithDescription("List CI pipeline runs, most recent first. Each run carries a pull_request_id derived from its commit message; the value is best-effort and may be absent or wrong."),
		mcp.WithString("state", mcp.Description("Filter by run state: PENDING, IN_PROGRESS, SUCCESSFUL, FAILED, STOPPED, SKIPPED, or ERROR. Applied after fetching the page.")),
		mcp.WithNumber("limit", mcp.Description("Page size, 1-100 (default 10).")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1).")),
		mcp.WithString("target_branch", mcp.Description("Only runs targeting this branch.")),
	), s.handleListPipelines)
}

// selectorFromRequest builds the pull request selector from the optional
// pr_id / source_branch pair. An id takes precedence; supplying neither
// is rejected here, before any network call.
func selectorFromRequest(req mcp.CallToolRequest) (domain.PullRequestSelector, error) {
	id := req.GetInt("pr_id", 0)
	branch := req.GetString("source_branch", "")
	switch {
	case id > 0:
		return domain.SelectByID(id), nil
	case branch != "":
		return domain.SelectByBranch(branch), nil
	default:
		return domain.PullRequestSelector{}, httpx.NewInvalidArgumentError(
			"resolve_pull_request", "either pr_id or source_branch must be provided")
	}
}

// pageFromRequest validates the limit/page arguments.
func pageFromRequest(req mcp.CallToolRequest) (bitbucket.PageParams, error) {
	return bitbucket.NewPageParams(
		req.GetInt("page", 1),
		req.GetInt("limit", bitbucket.DefaultPageLen),
	)
}

// branchNotFound is the explicit negative result for a branch search that
// matched nothing. It is a normal outcome, not an error.
type branchNotFound struct {
	Found        bool   `json:"found"`
	SourceBranch string `json:"source_branch"`
	Message      string `json:"message"`
}

func notFoundResult(branch string) (*mcp.CallToolResult, error) {
	return jsonResult(branchNotFound{
		Found:        false,
		SourceBranch: branch,
		Message:      fmt.Sprintf("no pull request found with source branch %q", branch),
	})
}

func (s *Server) handleListPullRequests(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := pageFromRequest(req)
	if err != nil {
		return s.toolError(ctx, err), nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	result, err := s.deps.PullRequests.ListPullRequests(ctx, bitbucket.ListPullRequestsOptions{
		State:        req.GetString("state", ""),
		TargetBranch: req.GetString("target_branch", ""),
		Page:         page,
	})
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleGetPRDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel, err := selectorFromRequest(req)
	if err != nil {
		return s.toolError(ctx, err), nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	pr, found, err := s.deps.Resolver.Resolve(ctx, sel)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	if !found {
		branch, _ := sel.ByBranch()
		return notFoundResult(branch)
	}

	details, err := s.deps.Enricher.Details(ctx, pr, req.GetBool("include_diff", false))
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	return jsonResult(details)
}

func (s *Server) handleGetPRDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel, err := selectorFromRequest(req)
	if err != nil {
		return s.toolError(ctx, err), nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	pr, found, err := s.deps.Resolver.Resolve(ctx, sel)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	if !found {
		branch, _ := sel.ByBranch()
		return notFoundResult(branch)
	}

	withDiff, err := s.deps.Enricher.UnifiedDiff(ctx, pr, true)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	return jsonResult(withDiff)
}

func (s *Server) handleAddPRComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prID, err := req.RequireInt("pr_id")
	if err != nil {
		return s.toolError(ctx, httpx.NewInvalidArgumentError("add_comment", err.Error())), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return s.toolError(ctx, httpx.NewInvalidArgumentError("add_comment", err.Error())), nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	comment, err := s.deps.Comments.AddGeneral(ctx, prID, content)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	return jsonResult(comment)
}

func (s *Server) handleAddPRInlineComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prID, err := req.RequireInt("pr_id")
	if err != nil {
		return s.toolError(ctx, httpx.NewInvalidArgumentError("add_inline_comment", err.Error())), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return s.toolError(ctx, httpx.NewInvalidArgumentError("add_inline_comment", err.Error())), nil
	}
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return s.toolError(ctx, httpx.NewInvalidArgumentError("add_inline_comment", err.Error())), nil
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return s.toolError(ctx, httpx.NewInvalidArgumentError("add_inline_comment", err.Error())), nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	comment, err := s.deps.Comments.AddInline(ctx, prID, content, filePath, line)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	return jsonResult(comment)
}

func (s *Server) handleViewPRComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel, err := selectorFromRequest(req)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	page, err := pageFromRequest(req)
	if err != nil {
		return s.toolError(ctx, err), nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	pr, found, err := s.deps.Resolver.Resolve(ctx, sel)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	if !found {
		branch, _ := sel.ByBranch()
		return notFoundResult(branch)
	}

	result, err := s.deps.Comments.List(ctx, pr.ID, page)
	if err != nil {
		return s.toolError(ctx, err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleListPipelines(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := pageFromRequest(req)
	if err != nil {
		return s.toolError(ctx, err), nil
	}

	var stateFilter domain.PipelineState
	filterByState := false
	if raw := req.GetString("state", ""); raw != "" {
		state, ok := domain.ParsePipelineState(raw)
		if !ok {
			return s.toolError(ctx, httpx.NewInvalidArgumentError("list_pipelines",
				fmt.Sprintf("unknown state %q; expected one of PENDING, IN_PROGRESS, SUCCESSFUL, FAILED, STOPPED, SKIPPED, ERROR", raw))), nil
		}
		stateFilter = state
		filterByState = true
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	raw, err := s.deps.Pipelines.ListPipelines(ctx, bitbucket.ListPipelinesOptions{
		TargetBranch: req.GetString("target_branch", ""),
		Page:         page,
	})
	if err != nil {
		return s.toolError(ctx, err), nil
	}

	result := s.deps.Correlator.Correlate(ctx, raw)

	// Bitbucket's pipelines listing has no server-side state filter, so
	// the filter applies to the fetched page. The page total stays the
	// upstream (unfiltered, advisory) count.
	if filterByState {
		filtered := make([]domain.Pipeline, 0, len(result.Values))
		for _, p := range result.Values {
			if p.State == stateFilter {
				filtered = append(filtered, p)
			}
		}
		result.Values = filtered
	}
	return jsonResult(result)
}
