// Package ext defines the extension system for digest. Extensions are
// notified of job lifecycle events (enqueued, started, fallback,
// completed, failed, cancelled) and can react to them — logging,
// metrics, dashboards.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/digest/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// JobEnqueued is called after a job is successfully enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker claims a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobFallback is called when the primary provider fails transiently and
// the scheduler is about to try the fallback provider.
type JobFallback interface {
	OnJobFallback(ctx context.Context, j *job.Job, fallbackProvider string, cause error) error
}

// JobCompleted is called after a job reaches completed. elapsed is the
// wall clock from claim to terminal write.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job reaches failed.
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobCancelled is called when a pending job is cancelled.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
