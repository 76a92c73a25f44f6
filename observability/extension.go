package observability

import (
	"context"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*MetricsExtension)(nil)
	_ ext.JobEnqueued  = (*MetricsExtension)(nil)
	_ ext.JobCompleted = (*MetricsExtension)(nil)
	_ ext.JobFailed    = (*MetricsExtension)(nil)
	_ ext.JobFallback  = (*MetricsExtension)(nil)
	_ ext.JobCancelled = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics via go-utils
// MetricFactory. Register it as a digest extension to automatically
// track enqueue rates, completion counts, failure rates, fallback
// attempts, cancellations, and cost-estimate accuracy.
type MetricsExtension struct {
	JobEnqueued  gu.Counter
	JobCompleted gu.Counter
	JobFailed    gu.Counter
	JobFallback  gu.Counter
	JobCancelled gu.Counter

	// Cost variance tracking: a completed job lands in exactly one
	// bucket depending on how its actual cost compares to the estimate.
	CostOverEstimate  gu.Counter
	CostUnderEstimate gu.Counter
}

// NewMetricsExtension creates a MetricsExtension using a default metrics collector.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithFactory(gu.NewMetricsCollector("digest/observability"))
}

// NewMetricsExtensionWithFactory creates a MetricsExtension with the
// provided MetricFactory.
func NewMetricsExtensionWithFactory(factory gu.MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		JobEnqueued:       factory.Counter("digest.job.enqueued"),
		JobCompleted:      factory.Counter("digest.job.completed"),
		JobFailed:         factory.Counter("digest.job.failed"),
		JobFallback:       factory.Counter("digest.job.fallback"),
		JobCancelled:      factory.Counter("digest.job.cancelled"),
		CostOverEstimate:  factory.Counter("digest.job.cost.over_estimate"),
		CostUnderEstimate: factory.Counter("digest.job.cost.under_estimate"),
	}
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnJobEnqueued implements ext.JobEnqueued.
func (m *MetricsExtension) OnJobEnqueued(_ context.Context, _ *job.Job) error {
	m.JobEnqueued.Inc()
	return nil
}

// OnJobCompleted implements ext.JobCompleted. The cost variance is
// observable but never blocks completion.
func (m *MetricsExtension) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	m.JobCompleted.Inc()

	if j.ActualCost > j.EstimatedCost {
		m.CostOverEstimate.Inc()
	} else {
		m.CostUnderEstimate.Inc()
	}
	return nil
}

// OnJobFailed implements ext.JobFailed.
func (m *MetricsExtension) OnJobFailed(_ context.Context, _ *job.Job, _ error) error {
	m.JobFailed.Inc()
	return nil
}

// OnJobFallback implements ext.JobFallback.
func (m *MetricsExtension) OnJobFallback(_ context.Context, _ *job.Job, _ string, _ error) error {
	m.JobFallback.Inc()
	return nil
}

// OnJobCancelled implements ext.JobCancelled.
func (m *MetricsExtension) OnJobCancelled(_ context.Context, _ *job.Job) error {
	m.JobCancelled.Inc()
	return nil
}
