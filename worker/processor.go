// Package worker provides the scheduling core — a Processor that drives
// one claimed job to a terminal state through the primary/fallback
// provider policy, and a Pool of goroutines looping on the store's
// atomic claim operation.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/digest"
	"github.com/xraph/digest/backoff"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/middleware"
	"github.com/xraph/digest/provider"
	"github.com/xraph/digest/ratelimit"
)

// Processor runs a single claimed job through middleware and the
// provider adapters, then writes the terminal outcome. Adapter failures
// are classified and consumed here; they never escape to the pool.
type Processor struct {
	jobs       job.Store
	documents  document.Store
	providers  *provider.Registry
	extensions *ext.Registry
	backoff    backoff.Strategy
	limits     *ratelimit.Manager
	mw         middleware.Middleware
	logger     *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRateLimits sets the per-provider rate limit manager. Without one,
// provider calls are unthrottled.
func WithRateLimits(m *ratelimit.Manager) ProcessorOption {
	return func(p *Processor) { p.limits = m }
}

// NewProcessor creates a Processor with the given dependencies.
func NewProcessor(
	jobs job.Store,
	documents document.Store,
	providers *provider.Registry,
	extensions *ext.Registry,
	bo backoff.Strategy,
	logger *slog.Logger,
	mws []middleware.Middleware,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		jobs:       jobs,
		documents:  documents,
		providers:  providers,
		extensions: extensions,
		backoff:    bo,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process drives a claimed job to a terminal state.
// On success: records tokens, cost, and the result payload, marks completed.
// On transient primary failure with an untried fallback: waits the
// backoff delay, consumes one retry, and tries the fallback once.
// On fatal failure, or failure with no fallback left: marks failed with
// the last attempt's error.
// Processing time and retry count are recorded on every outcome.
func (p *Processor) Process(ctx context.Context, j *job.Job) error {
	var res *provider.Result

	terminal := func(ctx context.Context) error {
		r, err := p.run(ctx, j)
		if err != nil {
			return err
		}
		res = r
		return nil
	}

	err := p.mw(ctx, j, terminal)

	now := time.Now().UTC()
	elapsed := processingTime(j, now)

	var outcome job.Outcome
	if err != nil {
		outcome = job.Failed(err.Error(), j.RetryCount, elapsed)
	} else {
		outcome = job.Completed(res, j.RetryCount, elapsed)
	}

	if updateErr := p.jobs.UpdateTerminal(ctx, j.ID, outcome); updateErr != nil {
		p.logger.Error("failed to write terminal outcome",
			slog.String("job_id", j.ID.String()),
			slog.String("status", string(outcome.Status)),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}
	outcome.Apply(j, now)

	if err != nil {
		p.extensions.EmitJobFailed(ctx, j, err)
		return nil
	}

	p.extensions.EmitJobCompleted(ctx, j, elapsed)
	return nil
}

// run executes the primary attempt and at most one fallback attempt.
// Success fields are written onto j as soon as they are known so
// middleware observes the final provider and cost.
func (p *Processor) run(ctx context.Context, j *job.Job) (*provider.Result, error) {
	doc, err := p.documents.GetDocument(ctx, j.DocumentID)
	if err != nil {
		return nil, provider.Fatal(j.Provider, fmt.Errorf("load document %s: %w", j.DocumentID, err))
	}

	res, err := p.attempt(ctx, doc, j.Provider)
	if err == nil {
		markResult(j, res)
		return res, nil
	}

	if !provider.IsTransient(err) || j.FallbackProvider == "" || j.FallbackProvider == j.Provider {
		return nil, err
	}

	p.extensions.EmitJobFallback(ctx, j, j.FallbackProvider, err)
	p.logger.Info("primary provider failed, trying fallback",
		slog.String("job_id", j.ID.String()),
		slog.String("primary", j.Provider),
		slog.String("fallback", j.FallbackProvider),
		slog.String("error", err.Error()),
	)

	j.RetryCount++
	if waitErr := sleep(ctx, p.backoff.Delay(j.RetryCount)); waitErr != nil {
		return nil, provider.Transient(j.FallbackProvider, waitErr)
	}

	res, err = p.attempt(ctx, doc, j.FallbackProvider)
	if err != nil {
		return nil, err
	}
	markResult(j, res)
	return res, nil
}

// attempt invokes one provider adapter under the rate limiter.
func (p *Processor) attempt(ctx context.Context, doc *document.Document, providerID string) (*provider.Result, error) {
	d, adapter, err := p.providers.Lookup(providerID)
	if err != nil {
		return nil, provider.Fatal(providerID, err)
	}
	if !d.Available {
		return nil, provider.Fatal(providerID, digest.ErrProviderUnavailable)
	}
	if adapter == nil {
		return nil, provider.Fatal(providerID, errors.New("no adapter registered"))
	}

	if p.limits != nil {
		if acquireErr := p.limits.Acquire(ctx, providerID); acquireErr != nil {
			return nil, provider.Transient(providerID, acquireErr)
		}
		defer p.limits.Release(providerID)
	}

	return adapter.Process(ctx, doc, d)
}

// markResult records the successful attempt's accounting on the claimed
// copy of the job so middleware and hooks see final values.
func markResult(j *job.Job, res *provider.Result) {
	j.ProviderUsed = res.Provider
	j.ActualTokens = res.TokensUsed
	j.ActualCost = res.Cost
}

// processingTime is the wall clock from claim to terminal write.
func processingTime(j *job.Job, now time.Time) time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	return now.Sub(*j.StartedAt)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
