// Package pipelines correlates CI pipeline runs back to the pull request
// presumed to have triggered them.
package pipelines

import (
	"context"
	"regexp"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

// defaultConcurrency bounds the per-pipeline commit lookup fan-out.
const defaultConcurrency = 5

// prRefPattern matches a '#' immediately followed by decimal digits. The
// first match in a commit message is taken as the pull request reference.
var prRefPattern = regexp.MustCompile(`#(\d+)`)

// CommitReader fetches a commit so its message can be inspected when the
// pipeline payload did not include one.
type CommitReader interface {
	GetCommit(ctx context.Context, hash string) (domain.Commit, error)
}

// Correlator derives advisory pull request ids for pipeline runs.
type Correlator struct {
	commits     CommitReader
	concurrency int
	logger      httpx.Logger
}

// NewCorrelator creates a correlator. The logger may be nil.
func NewCorrelator(commits CommitReader, logger httpx.Logger) *Correlator {
	return &Correlator{commits: commits, concurrency: defaultConcurrency, logger: logger}
}

// SetConcurrency overrides the commit lookup fan-out limit.
func (c *Correlator) SetConcurrency(n int) {
	if n > 0 {
		c.concurrency = n
	}
}

// Correlate converts one page of raw pipeline records into the public
// pipeline shape, deriving each record's pull request id from its
// triggering commit message. Messages missing from the pipeline payload
// are looked up by commit hash concurrently; a failed lookup is swallowed
// and that pipeline is returned without a message or derived id, so one
// bad item never fails the batch. Output order matches input order
// regardless of completion order.
//
// The derived id is a heuristic with both false negatives and false
// positives; consumers must treat it as advisory.
func (c *Correlator) Correlate(ctx context.Context, page domain.Page[bitbucket.RawPipeline]) domain.Page[domain.Pipeline] {
	messages := make([]domain.Result[string], len(page.Values))

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i := range page.Values {
		raw := page.Values[i]
		if raw.CommitMessage != "" || raw.CommitHash == "" {
			messages[i] = domain.Ok(raw.CommitMessage)
			continue
		}
		g.Go(func() error {
			commit, err := c.commits.GetCommit(ctx, raw.CommitHash)
			if err != nil {
				messages[i] = domain.Fail[string](err.Error())
				return nil
			}
			messages[i] = domain.Ok(commit.Message)
			return nil
		})
	}
	_ = g.Wait()

	values := make([]domain.Pipeline, len(page.Values))
	for i, raw := range page.Values {
		message := ""
		if messages[i].Failed() {
			if c.logger != nil {
				c.logger.LogWarning(ctx, "commit message lookup failed", map[string]interface{}{
					"commit": raw.CommitHash,
					"error":  messages[i].Err,
				})
			}
		} else {
			message = messages[i].Value
		}
		values[i] = toPipeline(raw, message)
	}

	return domain.Page[domain.Pipeline]{
		Size:     page.Size,
		Page:     page.Page,
		PageLen:  page.PageLen,
		Next:     page.Next,
		Previous: page.Previous,
		Values:   values,
	}
}

// toPipeline builds the public pipeline shape, dropping upstream
// bookkeeping fields (uuid, trigger name) the caller has no use for.
func toPipeline(raw bitbucket.RawPipeline, message string) domain.Pipeline {
	return domain.Pipeline{
		State:           raw.State,
		BuildNumber:     raw.BuildNumber,
		CreatedOn:       raw.CreatedOn,
		CompletedOn:     raw.CompletedOn,
		DurationSeconds: raw.DurationSeconds,
		Target: domain.PipelineTarget{
			Branch:        raw.Branch,
			CommitHash:    raw.CommitHash,
			CommitMessage: message,
		},
		PullRequestID: ExtractPullRequestID(message),
	}
}

// ExtractPullRequestID returns the pull request id referenced by the
// first "#<digits>" token in a commit message, or nil when the message
// mentions none. First match wins; whether the first numeric reference is
// actually the triggering pull request is an unverified convention.
func ExtractPullRequestID(message string) *int {
	m := prRefPattern.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &id
}
