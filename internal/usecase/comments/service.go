// Package comments reads and writes pull request comments, general and
// inline, through one unified shape.
package comments

import (
	"context"
	"strings"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

// Client is the slice of the Bitbucket client the comment service needs.
type Client interface {
	ListComments(ctx context.Context, prID int, page bitbucket.PageParams) (domain.Page[domain.Comment], error)
	AddComment(ctx context.Context, prID int, content string, inline *domain.InlineAnchor) (domain.Comment, error)
}

// Service implements the comment operations. Comments are append-only
// from this side; no edit or delete is exposed.
type Service struct {
	client Client
}

// NewService creates a comment service backed by the given client.
func NewService(client Client) *Service {
	return &Service{client: client}
}

// List fetches one page of a pull request's comments.
func (s *Service) List(ctx context.Context, prID int, page bitbucket.PageParams) (domain.Page[domain.Comment], error) {
	return s.client.ListComments(ctx, prID, page)
}

// AddGeneral creates a general comment and returns it exactly as
// Bitbucket reported it.
func (s *Service) AddGeneral(ctx context.Context, prID int, content string) (domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Comment{}, httpx.NewInvalidArgumentError("add_comment", "content must not be empty")
	}
	return s.client.AddComment(ctx, prID, content, nil)
}

// AddInline creates a comment anchored to a file path and line and
// returns it exactly as Bitbucket reported it.
func (s *Service) AddInline(ctx context.Context, prID int, content, filePath string, line int) (domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return domain.Comment{}, httpx.NewInvalidArgumentError("add_inline_comment", "content must not be empty")
	}
	if strings.TrimSpace(filePath) == "" {
		return domain.Comment{}, httpx.NewInvalidArgumentError("add_inline_comment", "file_path must not be empty")
	}
	if line < 1 {
		return domain.Comment{}, httpx.NewInvalidArgumentError("add_inline_comment", "line must be >= 1")
	}

	anchor := &domain.InlineAnchor{Path: filePath, ToLine: line}
	return s.client.AddComment(ctx, prID, content, anchor)
}
