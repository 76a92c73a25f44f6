package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xraph/digest/api"
	"github.com/xraph/digest/job"
)

// SubmitJob creates a summarization job for a document.
func (c *Client) SubmitJob(ctx context.Context, documentID, provider, fallbackProvider string) (*job.Job, error) {
	var j job.Job
	err := c.do(ctx, http.MethodPost, "/api/jobs", api.CreateJobRequest{
		DocumentID:       documentID,
		Provider:         provider,
		FallbackProvider: fallbackProvider,
	}, &j)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJob retrieves a job by ID.
func (c *Client) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	var j job.Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+jobID, nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs returns jobs ordered by creation time descending. status
// filters by lifecycle state; empty means all.
func (c *Client) ListJobs(ctx context.Context, status job.Status, limit, offset int) ([]*job.Job, error) {
	extra := url.Values{}
	if status != "" {
		extra.Set("status", string(status))
	}

	var jobs []*job.Job
	path := "/api/jobs" + listQuery(limit, offset, extra)
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// CancelJob cancels a pending job by ID.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+jobID, nil, nil)
}
