package storage

import "time"

// JobMetadata contains persisted metadata about a generation job.
//
// The engine keeps job state in process memory while a job runs; this record
// is the durable shadow written through the backend so that finished jobs
// remain listable after the process exits.
type JobMetadata struct {
	// ID is the unique identifier for the job (UUID v4).
	ID string `json:"id"`

	// Name is the caller-supplied job name.
	Name string `json:"name,omitempty"`

	// TemplateID selects the document template used for every item.
	TemplateID string `json:"template_id,omitempty"`

	// OutputFormat is the artifact grouping mode.
	// Valid values: "single_archive", "individual_files".
	OutputFormat string `json:"output_format,omitempty"`

	// Status indicates the current state of the job.
	// Valid values: "pending", "running", "paused", "completed", "failed",
	// "cancelled".
	Status string `json:"status"`

	// ItemCount is the number of items fixed at job creation.
	ItemCount int `json:"item_count"`

	// Aggregate item counters (updated on transitions, authoritative once
	// the job is terminal).
	CompletedCount int `json:"completed_count"`
	FailedCount    int `json:"failed_count"`
	SkippedCount   int `json:"skipped_count"`

	// StartedAt is when the job entered Running (UTC).
	// Zero value if the job never started.
	StartedAt time.Time `json:"started_at,omitzero"`

	// CompletedAt is when the job reached a terminal state (UTC).
	// Zero value while the job is live.
	CompletedAt time.Time `json:"completed_at,omitzero"`

	// Duration is the wall-clock job duration in seconds.
	// Only set when the job is terminal.
	Duration int `json:"duration_seconds,omitempty"`

	// ErrorMessage summarizes item failures for failed jobs.
	ErrorMessage string `json:"error_message,omitempty"`

	// CreatedAt is when the metadata record was first written (UTC).
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the metadata record was last written (UTC).
	UpdatedAt time.Time `json:"updated_at"`
}

// JobUpdates specifies fields to update in a job record.
//
// Only non-nil fields are applied (partial update). Pointers distinguish the
// zero value from "not set".
type JobUpdates struct {
	Status         *string    `json:"status,omitempty"`
	CompletedCount *int       `json:"completed_count,omitempty"`
	FailedCount    *int       `json:"failed_count,omitempty"`
	SkippedCount   *int       `json:"skipped_count,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Duration       *int       `json:"duration_seconds,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
}

// JobFilter specifies criteria for filtering job listings.
type JobFilter struct {
	// Status filters by job status (empty = all statuses).
	Status string

	// Name filters by name substring match (empty = all names).
	Name string

	// Limit is the maximum number of results to return (0 = no limit).
	Limit int

	// Offset is the number of results to skip (for pagination).
	Offset int
}

// JobStatus represents valid persisted job status values. The set mirrors
// the engine's job state machine.
type JobStatus string

// Valid job statuses.
const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusPaused    JobStatus = "paused"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// String returns the string representation of JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsValid checks if the JobStatus is valid.
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPaused,
		StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status indicates the job is finished.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ArtifactInfo describes one stored artifact file belonging to a job.
type ArtifactInfo struct {
	// Name is the artifact file name within the job's artifact directory.
	Name string `json:"name"`

	// Location is the workspace-relative path usable as an artifact
	// reference.
	Location string `json:"location"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the artifact's last modification time.
	ModTime time.Time `json:"mod_time"`
}
