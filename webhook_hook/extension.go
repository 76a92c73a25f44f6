package webhookhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension    = (*Extension)(nil)
	_ ext.JobEnqueued  = (*Extension)(nil)
	_ ext.JobStarted   = (*Extension)(nil)
	_ ext.JobFallback  = (*Extension)(nil)
	_ ext.JobCompleted = (*Extension)(nil)
	_ ext.JobFailed    = (*Extension)(nil)
	_ ext.JobCancelled = (*Extension)(nil)
)

// Extension bridges digest lifecycle events to an external webhook
// endpoint. Each lifecycle hook POSTs a typed JSON envelope.
type Extension struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Extension that delivers lifecycle events to endpoint.
func New(endpoint string, opts ...Option) *Extension {
	h := &Extension{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "webhook-hook" }

// OnJobEnqueued implements ext.JobEnqueued.
func (h *Extension) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	return h.send(ctx, EventJobEnqueued, newJobPayload(j))
}

// OnJobStarted implements ext.JobStarted.
func (h *Extension) OnJobStarted(ctx context.Context, j *job.Job) error {
	return h.send(ctx, EventJobStarted, newJobPayload(j))
}

// OnJobFallback implements ext.JobFallback.
func (h *Extension) OnJobFallback(ctx context.Context, j *job.Job, fallbackProvider string, cause error) error {
	return h.send(ctx, EventJobFallback, &jobFallbackPayload{
		jobPayload: *newJobPayload(j),
		FallbackTo: fallbackProvider,
		Error:      cause.Error(),
	})
}

// OnJobCompleted implements ext.JobCompleted.
func (h *Extension) OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error {
	return h.send(ctx, EventJobCompleted, &jobCompletedPayload{
		jobPayload:   *newJobPayload(j),
		ProviderUsed: j.ProviderUsed,
		ActualTokens: j.ActualTokens,
		ActualCost:   j.ActualCost,
		ElapsedMs:    elapsed.Milliseconds(),
	})
}

// OnJobFailed implements ext.JobFailed.
func (h *Extension) OnJobFailed(ctx context.Context, j *job.Job, jobErr error) error {
	return h.send(ctx, EventJobFailed, &jobFailedPayload{
		jobPayload: *newJobPayload(j),
		RetryCount: j.RetryCount,
		Error:      jobErr.Error(),
	})
}

// OnJobCancelled implements ext.JobCancelled.
func (h *Extension) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return h.send(ctx, EventJobCancelled, newJobPayload(j))
}

// send POSTs an envelope to the endpoint if the event type is enabled.
// Delivery failures are logged, never returned: webhooks must not
// affect job processing.
func (h *Extension) send(ctx context.Context, eventType string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	body, err := json.Marshal(Envelope{
		Event:     eventType,
		Timestamp: h.now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("webhook_hook: marshal %s: %w", eventType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook_hook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Digest-Event", eventType)
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("webhook_hook: delivery failed",
			"event", eventType,
			"endpoint", h.endpoint,
			"error", err,
		)
		return nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		h.logger.Warn("webhook_hook: endpoint rejected event",
			"event", eventType,
			"endpoint", h.endpoint,
			"status", resp.StatusCode,
		)
	}
	return nil
}
