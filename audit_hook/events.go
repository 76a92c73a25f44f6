package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle
// hook and becomes the Action field of the audit event.
const (
	ActionJobEnqueued  = "job.enqueued"
	ActionJobStarted   = "job.started"
	ActionJobFallback  = "job.fallback"
	ActionJobCompleted = "job.completed"
	ActionJobFailed    = "job.failed"
	ActionJobCancelled = "job.cancelled"
)

// CategoryJob groups all job lifecycle actions.
const CategoryJob = "digest.job"

// ResourceJob is the Resource field used in job audit events.
const ResourceJob = "job"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobEnqueued,
		ActionJobStarted,
		ActionJobFallback,
		ActionJobCompleted,
		ActionJobFailed,
		ActionJobCancelled,
	}
}
