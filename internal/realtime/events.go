package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Event stages emitted while an ingestion or generation workflow runs.
const (
	StageUploadStarted      = "upload_started"
	StageExtractionStarted  = "extraction_started"
	StageSourceReady        = "source_ready"
	StageIngestFailed       = "ingest_failed"
	StageGenerationStarted  = "generation_started"
	StageGenerationProgress = "generation_progress"
	StageGenerationDone     = "generation_done"
	StageGenerationFailed   = "generation_failed"
)

// ProgressEvent is the payload published per workflow stage so connected
// clients can render live pipeline progress.
type ProgressEvent struct {
	UserID       uuid.UUID      `json:"user_id"`
	TopicID      uuid.UUID      `json:"topic_id"`
	SourceID     *uuid.UUID     `json:"source_id,omitempty"`
	GenerationID *uuid.UUID     `json:"generation_id,omitempty"`
	Stage        string         `json:"stage"`
	Detail       map[string]any `json:"detail,omitempty"`
	At           time.Time      `json:"at"`
}
