// Package mcp exposes the Bitbucket operations as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/comments"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/enrich"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/pipelines"
	"github.com/bkyoung/bitbucket-mcp/internal/usecase/resolve"
)

// PullRequestLister lists pull requests for the listing tool.
type PullRequestLister interface {
	ListPullRequests(ctx context.Context, opts bitbucket.ListPullRequestsOptions) (domain.Page[domain.PullRequest], error)
}

// PipelineLister lists raw pipeline runs for the pipelines tool.
type PipelineLister interface {
	ListPipelines(ctx context.Context, opts bitbucket.ListPipelinesOptions) (domain.Page[bitbucket.RawPipeline], error)
}

// Dependencies captures the collaborators for the tool surface.
type Dependencies struct {
	Resolver     *resolve.Resolver
	Enricher     *enrich.Engine
	Comments     *comments.Service
	Correlator   *pipelines.Correlator
	PullRequests PullRequestLister
	Pipelines    PipelineLister
	Logger       httpx.Logger

	// OperationTimeout bounds one whole tool invocation including its
	// sub-fetches. Zero disables the bound.
	OperationTimeout time.Duration
}

// Server wraps an MCP server with the registered Bitbucket tools.
type Server struct {
	deps Dependencies
	mcp  *server.MCPServer
}

// NewServer builds the MCP server and registers all tools.
func NewServer(deps Dependencies, version string) *Server {
	s := &Server{deps: deps}
	s.mcp = server.NewMCPServer("bitbucket-mcp", version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// ServeStdio serves MCP over stdin/stdout until the context is cancelled.
// Transport errors are logged to stderr; stdout belongs to the protocol.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// opContext applies the per-operation deadline.
func (s *Server) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deps.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.deps.OperationTimeout)
}

// jsonResult marshals a payload into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports a failure through the result's error flag. Failures
// stay on the normal response channel; the process never terminates on a
// failed tool call.
func (s *Server) toolError(ctx context.Context, err error) *mcp.CallToolResult {
	if s.deps.Logger != nil {
		s.deps.Logger.LogWarning(ctx, "tool call failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultError(err.Error())
}
