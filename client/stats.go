package client

import (
	"context"
	"net/http"

	"github.com/xraph/digest/api"
	"github.com/xraph/digest/estimate"
	"github.com/xraph/digest/provider"
	"github.com/xraph/digest/stats"
)

// Stats retrieves a system statistics snapshot.
func (c *Client) Stats(ctx context.Context) (*stats.Snapshot, error) {
	var snap stats.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Providers lists the configured providers.
func (c *Client) Providers(ctx context.Context) ([]provider.Descriptor, error) {
	var descriptors []provider.Descriptor
	if err := c.do(ctx, http.MethodGet, "/api/providers", nil, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// EstimateCost estimates tokens and cost for summarizing a document
// with a provider, without creating a job.
func (c *Client) EstimateCost(ctx context.Context, documentID, providerID string) (estimate.Estimate, error) {
	var est estimate.Estimate
	err := c.do(ctx, http.MethodPost, "/api/estimate", api.EstimateRequest{
		DocumentID: documentID,
		Provider:   providerID,
	}, &est)
	return est, err
}

// GenerateDemoJobs asks the server to seed count demo jobs.
func (c *Client) GenerateDemoJobs(ctx context.Context, count int) (*api.GenerateDemoResponse, error) {
	var resp api.GenerateDemoResponse
	err := c.do(ctx, http.MethodPost, "/api/demo/jobs", api.GenerateDemoRequest{Count: count}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
