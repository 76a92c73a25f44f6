// Package stats computes point-in-time system statistics and handles
// retention of finished jobs.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

// Snapshot is a point-in-time view of the pipeline.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	TotalJobs      int64 `json:"total_jobs"`
	PendingJobs    int64 `json:"pending_jobs"`
	ProcessingJobs int64 `json:"processing_jobs"`
	CompletedJobs  int64 `json:"completed_jobs"`
	FailedJobs     int64 `json:"failed_jobs"`
	CancelledJobs  int64 `json:"cancelled_jobs"`

	TotalDocuments int64 `json:"total_documents"`

	// TotalCost is the sum of actual cost over completed jobs.
	TotalCost float64 `json:"total_cost"`

	// AvgProcessingTime is the mean wall-clock time of completed jobs.
	AvgProcessingTime time.Duration `json:"avg_processing_time"`

	// ProviderUsage counts jobs by primary provider.
	ProviderUsage map[string]int64 `json:"provider_usage"`

	// DocumentTypes counts documents by detected type.
	DocumentTypes map[document.Type]int64 `json:"document_types"`
}

// Collector computes snapshots from the stores.
type Collector struct {
	jobs      job.Store
	documents document.Store
	providers *provider.Registry
}

// NewCollector creates a Collector.
func NewCollector(jobs job.Store, documents document.Store, providers *provider.Registry) *Collector {
	return &Collector{jobs: jobs, documents: documents, providers: providers}
}

// Snapshot computes current system statistics. Counts come from the
// store's count queries; cost and timing aggregates walk the completed
// jobs.
func (c *Collector) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp:     time.Now().UTC(),
		ProviderUsage: make(map[string]int64),
	}

	statusCounts := map[job.Status]*int64{
		job.StatusPending:    &snap.PendingJobs,
		job.StatusProcessing: &snap.ProcessingJobs,
		job.StatusCompleted:  &snap.CompletedJobs,
		job.StatusFailed:     &snap.FailedJobs,
		job.StatusCancelled:  &snap.CancelledJobs,
	}
	for _, status := range job.Statuses() {
		n, err := c.jobs.CountJobs(ctx, job.CountOpts{Status: status})
		if err != nil {
			return nil, fmt.Errorf("stats: count %s jobs: %w", status, err)
		}
		*statusCounts[status] = n
		snap.TotalJobs += n
	}

	for _, d := range c.providers.List() {
		n, err := c.jobs.CountJobs(ctx, job.CountOpts{Provider: d.ID})
		if err != nil {
			return nil, fmt.Errorf("stats: count jobs for provider %s: %w", d.ID, err)
		}
		snap.ProviderUsage[d.ID] = n
	}

	docTypes, err := c.documents.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: count documents: %w", err)
	}
	snap.DocumentTypes = docTypes
	for _, n := range docTypes {
		snap.TotalDocuments += n
	}

	completed, err := c.jobs.ListJobs(ctx, job.ListOpts{Status: job.StatusCompleted})
	if err != nil {
		return nil, fmt.Errorf("stats: list completed jobs: %w", err)
	}
	var totalTime time.Duration
	for _, j := range completed {
		snap.TotalCost += j.ActualCost
		totalTime += j.ProcessingTime
	}
	if len(completed) > 0 {
		snap.AvgProcessingTime = totalTime / time.Duration(len(completed))
	}

	return snap, nil
}

// Cleanup removes terminal jobs that finished more than maxAge ago and
// returns how many were removed.
func (c *Collector) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed, err := c.jobs.PurgeJobs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("stats: purge jobs: %w", err)
	}
	return removed, nil
}
