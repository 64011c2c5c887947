package bitbucket

import (
	"time"

	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

// RawPipeline is the adapter-level pipeline record before correlation.
// It keeps upstream bookkeeping fields (uuid, trigger name) that the
// public pipeline shape drops, and the triggering commit message when
// Bitbucket happened to include it in the listing payload.
type RawPipeline struct {
	UUID            string
	BuildNumber     int
	State           domain.PipelineState
	CreatedOn       time.Time
	CompletedOn     *time.Time
	DurationSeconds int
	Branch          string
	CommitHash      string
	CommitMessage   string
	TriggerName     string
}
