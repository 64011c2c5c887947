// Package domain contains the entities exchanged between the Bitbucket
// adapter, the usecases, and the tool surface. All identifiers are owned
// by Bitbucket; nothing here is minted or cached locally.
package domain

import (
	"strings"
	"time"
)

// PullRequestState is the lifecycle state Bitbucket reports for a pull request.
type PullRequestState string

const (
	PullRequestOpen       PullRequestState = "OPEN"
	PullRequestMerged     PullRequestState = "MERGED"
	PullRequestDeclined   PullRequestState = "DECLINED"
	PullRequestSuperseded PullRequestState = "SUPERSEDED"
)

// PullRequest is a proposed merge tracked by Bitbucket. Records are
// read-only from this side; Bitbucket creates and mutates them.
type PullRequest struct {
	ID                int              `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	State             PullRequestState `json:"state"`
	Author            string           `json:"author"`
	CreatedOn         time.Time        `json:"created_on"`
	UpdatedOn         time.Time        `json:"updated_on"`
	SourceBranch      string           `json:"source_branch"`
	DestinationBranch string           `json:"destination_branch"`
	URL               string           `json:"url"`
	Reviewers         []Reviewer       `json:"reviewers"`
}

// Reviewer is a participant with review responsibility on a pull request.
// It has no identity outside the pull request that embeds it.
type Reviewer struct {
	DisplayName string `json:"display_name"`
	Approved    bool   `json:"approved"`
}

// Commit is one commit in a pull request's history.
type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`

	// Diff is nil when diffs were not requested, so the field is omitted
	// from the payload entirely. When a per-commit diff fetch fails the
	// field carries the failure description instead of diff text.
	Diff *string `json:"diff,omitempty"`
}

// CommentType distinguishes general discussion comments from comments
// anchored to a file and line in the diff.
type CommentType string

const (
	CommentGeneral CommentType = "general"
	CommentInline  CommentType = "inline"
)

// Comment is a unified view over Bitbucket's general and inline comment
// shapes. Inline is populated only when the upstream record carried inline
// metadata.
type Comment struct {
	ID        int           `json:"id"`
	Content   string        `json:"content"`
	Author    string        `json:"author"`
	CreatedOn time.Time     `json:"created_on"`
	UpdatedOn time.Time     `json:"updated_on"`
	Type      CommentType   `json:"type"`
	Inline    *InlineAnchor `json:"inline,omitempty"`
	URL       string        `json:"url,omitempty"`
}

// InlineAnchor pins a comment to a file path and line range within a pull
// request's diff.
type InlineAnchor struct {
	Path     string `json:"path"`
	FromLine int    `json:"from_line,omitempty"`
	ToLine   int    `json:"to_line,omitempty"`
}

// PipelineState is the collapsed run state of a CI pipeline. Bitbucket
// reports an outer state plus a result for completed runs; the adapter
// collapses the pair into one value.
type PipelineState string

const (
	PipelinePending    PipelineState = "PENDING"
	PipelineInProgress PipelineState = "IN_PROGRESS"
	PipelineSuccessful PipelineState = "SUCCESSFUL"
	PipelineFailed     PipelineState = "FAILED"
	PipelineStopped    PipelineState = "STOPPED"
	PipelineSkipped    PipelineState = "SKIPPED"
	PipelineError      PipelineState = "ERROR"
)

// ParsePipelineState normalizes a caller-supplied state name, accepting
// any casing, and reports whether the name is a known state.
func ParsePipelineState(s string) (PipelineState, bool) {
	state := PipelineState(strings.ToUpper(strings.TrimSpace(s)))
	switch state {
	case PipelinePending, PipelineInProgress, PipelineSuccessful,
		PipelineFailed, PipelineStopped, PipelineSkipped, PipelineError:
		return state, true
	}
	return "", false
}

// Pipeline is one CI run.
type Pipeline struct {
	State           PipelineState  `json:"state"`
	BuildNumber     int            `json:"build_number"`
	CreatedOn       time.Time      `json:"created_on"`
	CompletedOn     *time.Time     `json:"completed_on,omitempty"`
	DurationSeconds int            `json:"duration_seconds"`
	Target          PipelineTarget `json:"target"`

	// PullRequestID is derived from the triggering commit message by
	// matching the first "#<digits>" token. It is advisory only: a commit
	// that references an unrelated issue number produces a false positive,
	// and a commit that mentions no number produces none at all.
	PullRequestID *int `json:"pull_request_id,omitempty"`
}

// PipelineTarget describes what a pipeline ran against.
type PipelineTarget struct {
	Branch        string `json:"branch,omitempty"`
	CommitHash    string `json:"commit_hash,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`
}

// Page is one page of a Bitbucket list response. Next and Previous are
// Bitbucket's own continuation links passed through verbatim as opaque
// tokens. Size is the upstream total and is advisory: for server-side
// filtered queries it may not be exact.
type Page[T any] struct {
	Size     int    `json:"size"`
	Page     int    `json:"page"`
	PageLen  int    `json:"pagelen"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Values   []T    `json:"values"`
}
