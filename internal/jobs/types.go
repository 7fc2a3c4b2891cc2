package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeRebuild regenerates the BOM document from the spreadsheet.
	JobTypeRebuild JobType = "rebuild_bom"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// RebuildJob asks a worker to run the BOM pipeline for one spreadsheet.
type RebuildJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Input is the spreadsheet path or object URI.
	Input string `json:"input"`

	// Output is where the document is written. Empty keeps the result in memory only.
	Output string `json:"output,omitempty"`

	// Sheet selects a worksheet by name; empty means the first one.
	Sheet string `json:"sheet,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// TotalItems and TotalCost are filled in when the job completes.
	TotalItems int     `json:"total_items,omitempty"`
	TotalCost  float64 `json:"total_cost,omitempty"`

	RetryCount int `json:"retry_count"`
	// MaxRetries is the maximum number of retries allowed. Zero disables retries.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *RebuildJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *RebuildJob) GetType() JobType {
	return JobTypeRebuild
}

// GetStatus implements the Job interface.
func (j *RebuildJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishRebuild enqueues a rebuild job.
	PublishRebuild(ctx context.Context, job *RebuildJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *RebuildJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*RebuildJob, error)

	// ListJobs retrieves jobs with optional filtering, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*RebuildJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Input keeps only rebuilds of this spreadsheet.
	Input string

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
