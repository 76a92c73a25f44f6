package job

import (
	"time"

	"github.com/xraph/digest/provider"
)

// Outcome is the terminal write for a processing job. Exactly one of
// Result or ErrorMessage is set, matching the target status. The store
// applies an Outcome all-or-nothing: no partial result payload is ever
// visible.
type Outcome struct {
	// Status is the terminal status: StatusCompleted or StatusFailed.
	Status Status

	// Result holds the payload for completed jobs; nil for failed jobs.
	Result *provider.Result

	// ErrorMessage records the last attempt's failure for failed jobs.
	ErrorMessage string

	// RetryCount is the number of fallback attempts consumed.
	RetryCount int

	// ProcessingTime is the wall clock from claim to terminal write.
	ProcessingTime time.Duration
}

// Completed builds a success outcome from a provider result.
func Completed(res *provider.Result, retries int, elapsed time.Duration) Outcome {
	return Outcome{
		Status:         StatusCompleted,
		Result:         res,
		RetryCount:     retries,
		ProcessingTime: elapsed,
	}
}

// Failed builds a failure outcome from the last attempt's error.
func Failed(errMsg string, retries int, elapsed time.Duration) Outcome {
	return Outcome{
		Status:         StatusFailed,
		ErrorMessage:   errMsg,
		RetryCount:     retries,
		ProcessingTime: elapsed,
	}
}

// Apply writes the outcome onto j, setting CompletedAt to now. Callers
// must have validated the transition; Apply only mutates fields.
func (o Outcome) Apply(j *Job, now time.Time) {
	j.Status = o.Status
	j.RetryCount = o.RetryCount
	j.ProcessingTime = o.ProcessingTime
	j.CompletedAt = &now
	j.UpdatedAt = now

	if o.Status == StatusCompleted && o.Result != nil {
		j.Summary = o.Result.Summary
		j.KeyPoints = o.Result.KeyPoints
		j.Entities = o.Result.Entities
		j.ActualTokens = o.Result.TokensUsed
		j.ActualCost = o.Result.Cost
		j.ProviderUsed = o.Result.Provider
		j.ErrorMessage = ""
		return
	}

	j.ErrorMessage = o.ErrorMessage
	j.Summary = ""
	j.KeyPoints = nil
	j.Entities = nil
	j.ActualTokens = 0
	j.ActualCost = 0
	j.ProviderUsed = ""
}
