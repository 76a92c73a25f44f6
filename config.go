package digest

import "time"

// Config holds configuration for the worker pool and job creation rules.
type Config struct {
	// Concurrency is the number of worker goroutines claiming jobs.
	Concurrency int

	// PollInterval is how often an idle worker polls for pending jobs.
	PollInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// ProcessTimeout bounds a single job's processing, covering both the
	// primary and fallback attempts. Zero means no deadline.
	ProcessTimeout time.Duration

	// AllowResubmission permits multiple jobs referencing the same
	// document. When false, a second job for a document is rejected
	// with ErrDuplicateJob.
	AllowResubmission bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       4,
		PollInterval:      250 * time.Millisecond,
		ShutdownTimeout:   30 * time.Second,
		AllowResubmission: true,
	}
}
