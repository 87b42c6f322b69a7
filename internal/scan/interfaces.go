package scan

import (
	"context"
	"time"
)

// JobStore persists job and run metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, endTime *time.Time) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	CreateRun(ctx context.Context, run Run) error
	// TransitionRun advances a run's status. Implementations must reject
	// transitions that CanTransition disallows.
	TransitionRun(ctx context.Context, runID string, to RunStatus, errText string) error
	ListRunsByStatus(ctx context.Context, status RunStatus) ([]Run, error)
	ListRunsByJob(ctx context.Context, jobID string) ([]Run, error)
}

// ContentStore persists ingested content items and their media rows.
type ContentStore interface {
	CreateContentItem(ctx context.Context, item ContentItem) error
	CreateContentMedia(ctx context.Context, media ContentMedia) error
}

// BlobStore writes raw media artifacts and returns a storage path.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Provider is the external scraping provider the orchestrator and monitor
// talk to. Task handles are opaque provider-issued identifiers.
type Provider interface {
	StartTask(ctx context.Context, platform Platform, params TaskParams) (string, error)
	TaskStatus(ctx context.Context, handle string) (TaskState, error)
	TaskResults(ctx context.Context, handle string) ([]RawItem, error)
	// FetchResource retrieves an auxiliary resource referenced by a result
	// item, such as a subtitle file.
	FetchResource(ctx context.Context, ref string) ([]byte, error)
}

// Notifier signals downstream analysis that a content item is durably written.
// Implementations are one-way sends; callers never await analysis results.
type Notifier interface {
	NotifyContentReady(ctx context.Context, contentItemID string) error
}

// Hasher computes digests for media integrity and dedup.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
