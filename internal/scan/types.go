// Package scan defines core types shared across the scan engine subsystems.
package scan

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a scan job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusInitializing        JobStatus = "INITIALIZING"
	JobStatusRunning             JobStatus = "RUNNING"
	JobStatusPartial             JobStatus = "PARTIAL"
	JobStatusFailed              JobStatus = "FAILED"
	JobStatusCompleted           JobStatus = "COMPLETED"
	JobStatusCompletedWithErrors JobStatus = "COMPLETED_WITH_ERRORS"
)

// Terminal reports whether the job status is final.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusFailed, JobStatusCompleted, JobStatusCompletedWithErrors:
		return true
	default:
		return false
	}
}

// RunStatus represents the lifecycle state of a single provider task run.
type RunStatus string

// Run status values persisted in the job store.
const (
	RunStatusStarted          RunStatus = "STARTED"
	RunStatusFetchingResults  RunStatus = "FETCHING_RESULTS"
	RunStatusCompleted        RunStatus = "COMPLETED"
	RunStatusProcessingFailed RunStatus = "PROCESSING_FAILED"
	RunStatusFailed           RunStatus = "FAILED"
)

// Terminal reports whether the run status is final.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusProcessingFailed, RunStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a run may move from one status to another.
// Statuses only advance forward; terminal statuses accept no transitions.
func CanTransition(from, to RunStatus) bool {
	switch from {
	case RunStatusStarted:
		return to == RunStatusFetchingResults || to == RunStatusFailed
	case RunStatusFetchingResults:
		return to == RunStatusCompleted || to == RunStatusProcessingFailed
	default:
		return false
	}
}

// Platform identifies the social platform a channel belongs to.
type Platform string

// Platforms understood by the provider task builders and extractors.
const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

// Job is the aggregate unit spanning all runs started together.
type Job struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Run tracks one external scraping task against a single channel.
type Run struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	ChannelID  string    `json:"channel_id"`
	Platform   Platform  `json:"platform"`
	TaskHandle string    `json:"task_handle"`
	Status     RunStatus `json:"status"`
	ErrorText  string    `json:"error_text,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChannelTarget identifies one channel to scan, bound to exactly one platform.
type ChannelTarget struct {
	ChannelID string   `json:"channel_id"`
	Platform  Platform `json:"platform"`
	URL       string   `json:"url"`
}

// PlatformSelections holds an optional per-platform result-count limit.
// A missing entry or a zero value means the provider default applies.
type PlatformSelections map[Platform]int

// TaskParams captures everything needed to start one provider task.
type TaskParams struct {
	ChannelURL string
	MaxResults int
}

// TaskState is the provider-reported state of an external task.
type TaskState string

// Provider task states.
const (
	TaskStatePending   TaskState = "PENDING"
	TaskStateSucceeded TaskState = "SUCCEEDED"
	TaskStateFailed    TaskState = "FAILED"
	TaskStateTimedOut  TaskState = "TIMED_OUT"
	TaskStateAborted   TaskState = "ABORTED"
)

// Terminal reports whether the provider task has finished.
func (s TaskState) Terminal() bool {
	return s != TaskStatePending
}

// Succeeded reports whether the provider task finished successfully.
func (s TaskState) Succeeded() bool {
	return s == TaskStateSucceeded
}

// RawItem is one unprocessed result item as returned by the provider.
type RawItem = json.RawMessage

// TranscriptSegment is one timed span of transcript text.
type TranscriptSegment struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// ContentItem is one durably ingested result item (post or crawled page).
type ContentItem struct {
	ID         string              `json:"id"`
	JobID      string              `json:"job_id"`
	RunID      string              `json:"run_id"`
	Platform   Platform            `json:"platform"`
	Title      string              `json:"title,omitempty"`
	Caption    string              `json:"caption,omitempty"`
	URL        string              `json:"url"`
	Transcript []TranscriptSegment `json:"transcript,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// MediaKind classifies a stored media asset.
type MediaKind string

// Media kinds recorded on ContentMedia rows.
const (
	MediaKindImage     MediaKind = "image"
	MediaKindVideo     MediaKind = "video"
	MediaKindThumbnail MediaKind = "thumbnail"
)

// ContentMedia is one stored media asset belonging to a content item.
type ContentMedia struct {
	ID            string    `json:"id"`
	ContentItemID string    `json:"content_item_id"`
	StoragePath   string    `json:"storage_path"`
	ContentHash   string    `json:"content_hash"`
	Kind          MediaKind `json:"kind"`
	CreatedAt     time.Time `json:"created_at"`
}
