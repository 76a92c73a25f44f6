package job

import (
	"context"
	"time"

	"github.com/xraph/digest/id"
)

// ListOpts controls filtering and pagination for job list queries.
type ListOpts struct {
	// Status filters by job status. Empty means all statuses.
	Status Status
	// DocumentID filters by document. Nil ID means all documents.
	DocumentID id.DocumentID
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	// Status filters by job status. Empty means all statuses.
	Status Status
	// Provider filters by primary provider ID. Empty means all providers.
	Provider string
}

// Store defines the persistence contract for jobs.
//
// ClaimNextPending is the pipeline's sole serialization point: it must be
// an atomic conditional update so that two concurrent claims never return
// the same job. Every other method only needs ordinary consistency, and
// list reads must be point-in-time snapshots (never a half-written record).
type Store interface {
	// EnqueueJob persists a new pending job. Fails with
	// digest.ErrDocumentNotFound if the referenced document does not
	// exist, and with digest.ErrDuplicateJob if resubmission is disabled
	// and the document already has a job.
	EnqueueJob(ctx context.Context, j *Job) error

	// GetJob retrieves a job by ID. Fails with digest.ErrJobNotFound.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// ListJobs returns jobs ordered by creation time descending.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// ClaimNextPending atomically selects the oldest pending job,
	// transitions it to processing, stamps StartedAt and the claiming
	// worker, and returns it. Fails with digest.ErrNoPendingJobs when no
	// job is eligible.
	ClaimNextPending(ctx context.Context, workerID id.WorkerID) (*Job, error)

	// UpdateTerminal transitions a processing job to completed or failed,
	// writing the result payload or error message all-or-nothing. Fails
	// with digest.ErrInvalidTransition if the job is not processing.
	UpdateTerminal(ctx context.Context, jobID id.JobID, outcome Outcome) error

	// CancelJob transitions a pending job to cancelled. Fails with
	// digest.ErrInvalidTransition if the job has already been claimed or
	// is terminal.
	CancelJob(ctx context.Context, jobID id.JobID) error

	// CountJobs returns the number of jobs matching the given options.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)

	// PurgeJobs removes terminal jobs whose CompletedAt is before the
	// given cutoff and returns how many were removed.
	PurgeJobs(ctx context.Context, before time.Time) (int64, error)
}
