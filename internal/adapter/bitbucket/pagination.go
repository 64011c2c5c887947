package bitbucket

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

const (
	// MinPageLen and MaxPageLen bound the page size Bitbucket accepts.
	MinPageLen = 1
	MaxPageLen = 100

	// DefaultPageLen is used when the caller does not ask for a size.
	DefaultPageLen = 10
)

// PageParams translates a caller's 1-based page number and page size into
// Bitbucket's paging parameters.
type PageParams struct {
	Page    int
	PageLen int
}

// NewPageParams validates and builds paging parameters. Values outside
// the accepted ranges are rejected with an invalid-argument error before
// any network call, never silently reinterpreted.
func NewPageParams(page, pagelen int) (PageParams, error) {
	if page < 1 {
		return PageParams{}, httpx.NewInvalidArgumentError("paginate",
			fmt.Sprintf("page must be >= 1, got %d", page))
	}
	if pagelen < MinPageLen || pagelen > MaxPageLen {
		return PageParams{}, httpx.NewInvalidArgumentError("paginate",
			fmt.Sprintf("limit must be between %d and %d, got %d", MinPageLen, MaxPageLen, pagelen))
	}
	return PageParams{Page: page, PageLen: pagelen}, nil
}

// DefaultPageParams returns the first page at the default size.
func DefaultPageParams() PageParams {
	return PageParams{Page: 1, PageLen: DefaultPageLen}
}

// apply sets the paging query parameters on a request query.
func (p PageParams) apply(q url.Values) {
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("pagelen", strconv.Itoa(p.PageLen))
}

// toPage converts a Bitbucket envelope plus already-mapped values into
// the domain page. Next and Previous pass through verbatim as opaque
// continuation tokens; the total is advisory.
func toPage[T, U any](env apiEnvelope[T], values []U) domain.Page[U] {
	return domain.Page[U]{
		Size:     env.Size,
		Page:     env.Page,
		PageLen:  env.PageLen,
		Next:     env.Next,
		Previous: env.Previous,
		Values:   values,
	}
}
