package store

import "context"

// Store is the job record persistence surface used by the coordinator and
// the status API. Implementations must support concurrent writers to
// distinct job rows.
type Store interface {
	// CreateJob inserts a new pending job record.
	CreateJob(ctx context.Context, job *SyncJob) error

	// GetJob returns a job by ID, or ErrNotFound.
	GetJob(ctx context.Context, jobID string) (*SyncJob, error)

	// FindActiveByRepository returns the pending or running job for a
	// repository, or ErrNotFound. Backs the cross-process admission check.
	FindActiveByRepository(ctx context.Context, repoName string) (*SyncJob, error)

	// ListJobs returns the most recent jobs, newest first.
	ListJobs(ctx context.Context, limit int) ([]*SyncJob, error)

	// MarkRunning transitions a job to running with progress 0 and a start time.
	MarkRunning(ctx context.Context, jobID string) error

	// UpdateProgress raises a running job's progress. Monotonic: a value
	// lower than the stored one is ignored.
	UpdateProgress(ctx context.Context, jobID string, progress int) error

	// MarkCompleted finalizes a successful job.
	MarkCompleted(ctx context.Context, jobID string, meta *ResultMetadata) error

	// MarkFailed finalizes a failed job with a human-readable message.
	MarkFailed(ctx context.Context, jobID, errorMessage string) error

	// Close releases the underlying resources.
	Close() error
}
