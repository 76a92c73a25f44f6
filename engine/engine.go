// Package engine wires all digest subsystems together. It creates the
// extension registry, provider registry, cost estimator, middleware
// chain, and worker pool, and exposes the document/job operations.
//
// This package exists to break the import cycle: the root digest package
// defines Entity (imported by document, job, etc.) and so cannot import
// those packages back. The engine package sits above all subsystem
// packages and below the application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/digest"
	"github.com/xraph/digest/backoff"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/estimate"
	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	mw "github.com/xraph/digest/middleware"
	"github.com/xraph/digest/observability"
	"github.com/xraph/digest/provider"
	"github.com/xraph/digest/ratelimit"
	"github.com/xraph/digest/stats"
	"github.com/xraph/digest/worker"
)

// Engine wraps a Pipeline with typed subsystem access.
// Use Build() to create one from a Pipeline.
type Engine struct {
	p          *digest.Pipeline
	extensions *ext.Registry
	providers  *provider.Registry
	estimator  *estimate.Estimator
	documents  document.Store
	jobs       job.Store
	bo         backoff.Strategy
	limits     *ratelimit.Manager
	pool       *worker.Pool
	collector  *stats.Collector
	mws        []mw.Middleware
	logger     *slog.Logger

	// Rate limit configs collected from options.
	limitConfigs []ratelimit.Config

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.extensions.Register(e)
	}
}

// WithMiddleware adds middleware to the engine's chain.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithBackoff sets the fallback backoff strategy for the engine.
// If not set, backoff.DefaultStrategy() is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) {
		eng.bo = b
	}
}

// WithEstimator sets a custom cost estimator configuration.
func WithEstimator(cfg estimate.Config) Option {
	return func(eng *Engine) {
		eng.estimator = estimate.New(cfg)
	}
}

// WithRateLimit registers per-provider rate limiting and concurrency
// configurations. Providers not listed have no limits.
func WithRateLimit(configs ...ratelimit.Config) Option {
	return func(eng *Engine) {
		eng.limitConfigs = append(eng.limitConfigs, configs...)
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build creates an Engine from an existing Pipeline.
// The Pipeline's store must implement document.Store and job.Store.
func Build(p *digest.Pipeline, opts ...Option) (*Engine, error) {
	logger := p.Logger()
	st := p.Store()

	if st == nil {
		return nil, digest.ErrNoStore
	}

	ds, ok := st.(document.Store)
	if !ok {
		return nil, fmt.Errorf("digest: store does not implement document.Store")
	}
	js, ok := st.(job.Store)
	if !ok {
		return nil, fmt.Errorf("digest: store does not implement job.Store")
	}

	eng := &Engine{
		p:          p,
		extensions: ext.NewRegistry(logger),
		providers:  provider.NewRegistry(),
		estimator:  estimate.New(estimate.DefaultConfig()),
		documents:  ds,
		jobs:       js,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy()
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/xraph/digest")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/xraph/digest")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Register the observability metrics extension.
	eng.extensions.Register(observability.NewMetricsExtension())

	config := p.Config()

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(logger, config.ProcessTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	var procOpts []worker.ProcessorOption
	if len(eng.limitConfigs) > 0 {
		eng.limits = ratelimit.NewManager(eng.limitConfigs...)
		procOpts = append(procOpts, worker.WithRateLimits(eng.limits))
	}

	processor := worker.NewProcessor(
		eng.jobs,
		eng.documents,
		eng.providers,
		eng.extensions,
		eng.bo,
		logger,
		allMws,
		procOpts...,
	)

	eng.pool = worker.NewPool(
		eng.jobs,
		processor,
		eng.extensions,
		logger,
		worker.WithPoolConcurrency(config.Concurrency),
		worker.WithPollInterval(config.PollInterval),
	)

	eng.collector = stats.NewCollector(eng.jobs, eng.documents, eng.providers)

	// Wire back into the Pipeline.
	p.SetPool(eng.pool)
	p.SetExtensions(eng.extensions)

	return eng, nil
}

// RegisterProvider registers a provider descriptor and its adapter.
func (eng *Engine) RegisterProvider(d provider.Descriptor, a provider.Adapter) {
	eng.providers.Register(d, a)
}

// CreateDocument registers an uploaded document. The document type is
// detected from the original filename's extension.
func (eng *Engine) CreateDocument(ctx context.Context, originalFilename string, sizeBytes int64, storageRef string) (*document.Document, error) {
	d := document.New(originalFilename, sizeBytes, storageRef)
	if err := eng.documents.CreateDocument(ctx, d); err != nil {
		return nil, err
	}

	eng.logger.Info("document created",
		slog.String("document_id", d.ID.String()),
		slog.String("type", string(d.Type)),
		slog.Int64("size_bytes", d.SizeBytes),
	)
	return d, nil
}

// GetDocument retrieves a document by ID.
func (eng *Engine) GetDocument(ctx context.Context, docID id.DocumentID) (*document.Document, error) {
	return eng.documents.GetDocument(ctx, docID)
}

// ListDocuments returns documents ordered by creation time descending.
func (eng *Engine) ListDocuments(ctx context.Context, opts document.ListOpts) ([]*document.Document, error) {
	return eng.documents.ListDocuments(ctx, opts)
}

// SubmitJob creates a pending summarization job for a document. The
// estimated token count and cost are computed up front from the primary
// provider's pricing.
func (eng *Engine) SubmitJob(ctx context.Context, docID id.DocumentID, primary, fallback string) (*job.Job, error) {
	d, err := eng.providers.Describe(primary)
	if err != nil {
		return nil, err
	}
	if fallback != "" {
		if _, fbErr := eng.providers.Describe(fallback); fbErr != nil {
			return nil, fbErr
		}
	}

	doc, err := eng.documents.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	est := eng.estimator.Estimate(doc, d)

	j := job.New(docID, primary, fallback)
	j.EstimatedTokens = est.Tokens
	j.EstimatedCost = est.Cost

	if err := eng.jobs.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}

	eng.extensions.EmitJobEnqueued(ctx, j)
	eng.logger.Info("job submitted",
		slog.String("job_id", j.ID.String()),
		slog.String("document_id", docID.String()),
		slog.String("provider", primary),
		slog.String("fallback", fallback),
		slog.Int("estimated_tokens", est.Tokens),
		slog.Float64("estimated_cost", est.Cost),
	)
	return j, nil
}

// GetJob retrieves a job by ID.
func (eng *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return eng.jobs.GetJob(ctx, jobID)
}

// ListJobs returns jobs ordered by creation time descending.
func (eng *Engine) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	return eng.jobs.ListJobs(ctx, opts)
}

// CancelJob cancels a pending job. Jobs that have already been claimed
// or finished fail with digest.ErrInvalidTransition.
func (eng *Engine) CancelJob(ctx context.Context, jobID id.JobID) error {
	if err := eng.jobs.CancelJob(ctx, jobID); err != nil {
		return err
	}

	j, err := eng.jobs.GetJob(ctx, jobID)
	if err == nil {
		eng.extensions.EmitJobCancelled(ctx, j)
	}
	eng.logger.Info("job cancelled", slog.String("job_id", jobID.String()))
	return nil
}

// EstimateCost computes the estimated tokens and cost of summarizing a
// document with a given provider, without creating a job.
func (eng *Engine) EstimateCost(ctx context.Context, docID id.DocumentID, providerID string) (estimate.Estimate, error) {
	d, err := eng.providers.Describe(providerID)
	if err != nil {
		return estimate.Estimate{}, err
	}

	doc, err := eng.documents.GetDocument(ctx, docID)
	if err != nil {
		return estimate.Estimate{}, err
	}

	return eng.estimator.Estimate(doc, d), nil
}

// Snapshot computes current system statistics.
func (eng *Engine) Snapshot(ctx context.Context) (*stats.Snapshot, error) {
	return eng.collector.Snapshot(ctx)
}

// Cleanup removes terminal jobs that finished more than maxAge ago.
func (eng *Engine) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	return eng.collector.Cleanup(ctx, maxAge)
}

// Start begins job processing by starting the worker pool.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.p.Start(ctx)
}

// Stop gracefully shuts down the engine.
func (eng *Engine) Stop(ctx context.Context) error {
	return eng.p.Stop(ctx)
}

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Providers returns the provider registry.
func (eng *Engine) Providers() *provider.Registry { return eng.providers }

// Pipeline returns the underlying Pipeline.
func (eng *Engine) Pipeline() *digest.Pipeline { return eng.p }

// RateLimits returns the rate limit manager, or nil if no limit configs
// were provided.
func (eng *Engine) RateLimits() *ratelimit.Manager { return eng.limits }

// Stats returns the stats collector.
func (eng *Engine) Stats() *stats.Collector { return eng.collector }
