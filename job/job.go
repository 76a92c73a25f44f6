package job

import (
	"time"

	"github.com/xraph/digest"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/provider"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusPending means the job is waiting to be claimed by a worker.
	StatusPending Status = "pending"
	// StatusProcessing means a worker has claimed the job and is driving
	// it to a terminal state.
	StatusProcessing Status = "processing"
	// StatusCompleted means the job finished with a result payload.
	StatusCompleted Status = "completed"
	// StatusFailed means the job failed terminally; ErrorMessage is set.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was cancelled before being claimed.
	StatusCancelled Status = "cancelled"
)

// Statuses lists every job status.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled}
}

// Terminal reports whether s is a terminal status. No transition ever
// moves a job out of a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is one of the legal
// transitions: pending -> processing -> {completed, failed} and
// pending -> cancelled.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing || to == StatusCancelled
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	}
	return false
}

// Job is one summarization request for a document. Created in pending by
// an external caller; mutated exclusively by the scheduler afterwards.
type Job struct {
	digest.Entity

	ID         id.JobID      `json:"id"`
	DocumentID id.DocumentID `json:"document_id"`

	// Provider is the primary provider ID; FallbackProvider is optional
	// and tried at most once after a transient primary failure.
	Provider         string `json:"provider"`
	FallbackProvider string `json:"fallback_provider,omitempty"`

	Status Status `json:"status"`

	// RetryCount is the number of fallback attempts consumed (0 or 1).
	RetryCount int `json:"retry_count"`

	// Cost and token accounting. Estimated values are set at creation;
	// actual values are populated only on completion.
	EstimatedTokens int     `json:"estimated_tokens"`
	EstimatedCost   float64 `json:"estimated_cost"`
	ActualTokens    int     `json:"actual_tokens"`
	ActualCost      float64 `json:"actual_cost"`

	// Result payload, populated if and only if Status is completed.
	Summary   string            `json:"summary,omitempty"`
	KeyPoints []string          `json:"key_points,omitempty"`
	Entities  []provider.Entity `json:"entities,omitempty"`

	// ProviderUsed is the provider that produced the result.
	ProviderUsed string `json:"provider_used,omitempty"`

	// ErrorMessage is populated if and only if Status is failed.
	ErrorMessage string `json:"error_message,omitempty"`

	// WorkerID identifies the worker that claimed the job.
	WorkerID id.WorkerID `json:"worker_id,omitempty"`

	// StartedAt is set when the job is claimed; CompletedAt on any
	// terminal transition. ProcessingTime is the wall clock between them.
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
}

// New creates a pending Job for the given document and providers.
func New(docID id.DocumentID, primary, fallback string) *Job {
	return &Job{
		Entity:           digest.NewEntity(),
		ID:               id.NewJobID(),
		DocumentID:       docID,
		Provider:         primary,
		FallbackProvider: fallback,
		Status:           StatusPending,
	}
}
