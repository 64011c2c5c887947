package bitbucket

import (
	"fmt"
	"time"

	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

// mapPullRequest converts a Bitbucket pull request record to the domain
// shape. A record without source and destination branch names is a
// malformed upstream response and is surfaced as an error, never
// silently defaulted.
func mapPullRequest(api apiPullRequest) (domain.PullRequest, error) {
	if api.Source.Branch.Name == "" {
		return domain.PullRequest{}, fmt.Errorf("pull request %d: upstream record missing source branch", api.ID)
	}
	if api.Destination.Branch.Name == "" {
		return domain.PullRequest{}, fmt.Errorf("pull request %d: upstream record missing destination branch", api.ID)
	}

	return domain.PullRequest{
		ID:                api.ID,
		Title:             api.Title,
		Description:       api.Description,
		State:             domain.PullRequestState(api.State),
		Author:            accountName(api.Author),
		CreatedOn:         parseTime(api.CreatedOn),
		UpdatedOn:         parseTime(api.UpdatedOn),
		SourceBranch:      api.Source.Branch.Name,
		DestinationBranch: api.Destination.Branch.Name,
		URL:               api.Links.HTML.Href,
		Reviewers:         mapReviewers(api.Participants),
	}, nil
}

// mapReviewers projects approval state from the participants list.
// Bitbucket's top-level reviewers field has no approval flag, so the
// participants with the REVIEWER role are the source of truth. An absent
// list normalizes to an empty slice, never nil.
func mapReviewers(participants []apiParticipant) []domain.Reviewer {
	reviewers := make([]domain.Reviewer, 0, len(participants))
	for _, p := range participants {
		if p.Role != "REVIEWER" {
			continue
		}
		reviewers = append(reviewers, domain.Reviewer{
			DisplayName: accountName(p.User),
			Approved:    p.Approved,
		})
	}
	return reviewers
}

func mapCommit(api apiCommit) domain.Commit {
	author := accountName(api.Author.User)
	if author == "" {
		author = api.Author.Raw
	}
	return domain.Commit{
		Hash:    api.Hash,
		Message: api.Message,
		Author:  author,
		Date:    parseTime(api.Date),
	}
}

// mapComment normalizes both general and inline comment shapes into the
// unified domain.Comment. The inline anchor is populated only when the
// upstream record carries inline metadata.
func mapComment(api apiComment) domain.Comment {
	c := domain.Comment{
		ID:        api.ID,
		Content:   api.Content.Raw,
		Author:    accountName(api.User),
		CreatedOn: parseTime(api.CreatedOn),
		UpdatedOn: parseTime(api.UpdatedOn),
		Type:      domain.CommentGeneral,
		URL:       api.Links.HTML.Href,
	}
	if api.Inline != nil {
		c.Type = domain.CommentInline
		c.Inline = &domain.InlineAnchor{
			Path:     api.Inline.Path,
			FromLine: api.Inline.From,
			ToLine:   api.Inline.To,
		}
	}
	return c
}

// mapPipeline converts a Bitbucket pipeline record to the raw adapter
// shape consumed by the correlator.
func mapPipeline(api apiPipeline) RawPipeline {
	raw := RawPipeline{
		UUID:            api.UUID,
		BuildNumber:     api.BuildNumber,
		State:           derivePipelineState(api.State),
		CreatedOn:       parseTime(api.CreatedOn),
		DurationSeconds: api.DurationInSeconds,
		Branch:          api.Target.RefName,
		TriggerName:     api.Trigger.Name,
	}
	if api.CompletedOn != "" {
		t := parseTime(api.CompletedOn)
		raw.CompletedOn = &t
	}
	if api.Target.Commit != nil {
		raw.CommitHash = api.Target.Commit.Hash
		raw.CommitMessage = api.Target.Commit.Message
	}
	return raw
}

// derivePipelineState collapses Bitbucket's two-level pipeline state into
// one value: a completed run is reported as its result (SUCCESSFUL,
// FAILED, STOPPED, SKIPPED, ERROR), anything else as the outer state.
func derivePipelineState(state apiPipelineState) domain.PipelineState {
	if state.Result != nil && state.Result.Name != "" {
		return domain.PipelineState(state.Result.Name)
	}
	return domain.PipelineState(state.Name)
}

func accountName(a apiAccount) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Nickname
}

// parseTime parses Bitbucket's RFC 3339 timestamps (they carry fractional
// seconds, which time.Parse accepts against the plain layout). A missing
// or malformed timestamp yields the zero time rather than an error; the
// fields are informational.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
