package webhookhook

import (
	"time"

	"github.com/xraph/digest/job"
)

// Digest lifecycle event types. Each constant maps to one ext lifecycle
// hook and becomes the Event field of the webhook envelope.
const (
	EventJobEnqueued  = "digest.job.enqueued"
	EventJobStarted   = "digest.job.started"
	EventJobFallback  = "digest.job.fallback"
	EventJobCompleted = "digest.job.completed"
	EventJobFailed    = "digest.job.failed"
	EventJobCancelled = "digest.job.cancelled"
)

// AllEvents returns every event type this extension can emit.
func AllEvents() []string {
	return []string{
		EventJobEnqueued,
		EventJobStarted,
		EventJobFallback,
		EventJobCompleted,
		EventJobFailed,
		EventJobCancelled,
	}
}

// Envelope is the wire format POSTed to the webhook endpoint.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type jobPayload struct {
	JobID            string `json:"job_id"`
	DocumentID       string `json:"document_id"`
	Provider         string `json:"provider"`
	FallbackProvider string `json:"fallback_provider,omitempty"`
	Status           string `json:"status"`
}

func newJobPayload(j *job.Job) *jobPayload {
	return &jobPayload{
		JobID:            j.ID.String(),
		DocumentID:       j.DocumentID.String(),
		Provider:         j.Provider,
		FallbackProvider: j.FallbackProvider,
		Status:           string(j.Status),
	}
}

type jobFallbackPayload struct {
	jobPayload
	FallbackTo string `json:"fallback_to"`
	Error      string `json:"error"`
}

type jobCompletedPayload struct {
	jobPayload
	ProviderUsed string  `json:"provider_used"`
	ActualTokens int     `json:"actual_tokens"`
	ActualCost   float64 `json:"actual_cost"`
	ElapsedMs    int64   `json:"elapsed_ms"`
}

type jobFailedPayload struct {
	jobPayload
	RetryCount int    `json:"retry_count"`
	Error      string `json:"error"`
}
