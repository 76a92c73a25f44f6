package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/digest/backoff"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
	"github.com/xraph/digest/store/memory"
)

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingAdapter counts invocations and replays a fixed outcome.
type countingAdapter struct {
	calls  atomic.Int64
	result *provider.Result
	err    error
}

func (a *countingAdapter) Process(_ context.Context, _ *document.Document, d provider.Descriptor) (*provider.Result, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	res := *a.result
	res.Provider = d.ID
	return &res, nil
}

type fixture struct {
	store     *memory.Store
	registry  *provider.Registry
	processor *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()
	s := memory.New()
	reg := provider.NewRegistry()
	p := NewProcessor(s, s, reg, ext.NewRegistry(logger), backoff.NewConstant(0), logger, nil)
	return &fixture{store: s, registry: reg, processor: p}
}

func (f *fixture) register(t *testing.T, providerID string, a provider.Adapter) {
	t.Helper()
	f.registry.Register(provider.Descriptor{ID: providerID, Available: true, InputCostPer1K: 0.01, OutputCostPer1K: 0.02}, a)
}

// claimJob enqueues a job for a fresh document and claims it.
func (f *fixture) claimJob(t *testing.T, primary, fallback string) *job.Job {
	t.Helper()
	ctx := context.Background()

	doc := document.New("report.pdf", 4096, "file:///tmp/report.pdf")
	if err := f.store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	j := job.New(doc.ID, primary, fallback)
	if err := f.store.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	claimed, err := f.store.ClaimNextPending(ctx, id.NewWorkerID())
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	return claimed
}

func (f *fixture) stored(t *testing.T, jobID id.JobID) *job.Job {
	t.Helper()
	got, err := f.store.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return got
}

// ──────────────────────────────────────────────────
// Process
// ──────────────────────────────────────────────────

func TestProcessSuccess(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	primary := &countingAdapter{result: &provider.Result{
		Summary:    "done",
		KeyPoints:  []string{"a"},
		TokensUsed: 300,
		Cost:       0.05,
	}}
	f.register(t, provider.OpenAIGPT4, primary)

	j := f.claimJob(t, provider.OpenAIGPT4, "")
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusCompleted {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusCompleted)
	}
	if got.Summary != "done" || got.ActualTokens != 300 || got.ActualCost != 0.05 {
		t.Fatalf("result not recorded: %+v", got)
	}
	if got.ProviderUsed != provider.OpenAIGPT4 {
		t.Fatalf("got provider used %q, want %q", got.ProviderUsed, provider.OpenAIGPT4)
	}
	if got.RetryCount != 0 {
		t.Fatalf("got retry count %d, want 0", got.RetryCount)
	}
	if n := primary.calls.Load(); n != 1 {
		t.Fatalf("adapter called %d times, want 1", n)
	}
}

func TestProcessTransientFailureUsesFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	primary := &countingAdapter{err: provider.Transient(provider.OpenAIGPT4, errors.New("rate limited"))}
	fallback := &countingAdapter{result: &provider.Result{Summary: "rescued", TokensUsed: 100, Cost: 0.01}}
	f.register(t, provider.OpenAIGPT4, primary)
	f.register(t, provider.AnthropicClaude, fallback)

	j := f.claimJob(t, provider.OpenAIGPT4, provider.AnthropicClaude)
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusCompleted {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusCompleted)
	}
	if got.ProviderUsed != provider.AnthropicClaude {
		t.Fatalf("got provider used %q, want %q", got.ProviderUsed, provider.AnthropicClaude)
	}
	if got.RetryCount != 1 {
		t.Fatalf("got retry count %d, want 1", got.RetryCount)
	}
	if primary.calls.Load() != 1 || fallback.calls.Load() != 1 {
		t.Fatalf("got %d primary / %d fallback calls, want 1 / 1",
			primary.calls.Load(), fallback.calls.Load())
	}
}

func TestProcessFatalFailureSkipsFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	primary := &countingAdapter{err: provider.Fatal(provider.OpenAIGPT4, errors.New("malformed document"))}
	fallback := &countingAdapter{result: &provider.Result{Summary: "never"}}
	f.register(t, provider.OpenAIGPT4, primary)
	f.register(t, provider.AnthropicClaude, fallback)

	j := f.claimJob(t, provider.OpenAIGPT4, provider.AnthropicClaude)
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusFailed)
	}
	if got.ErrorMessage == "" {
		t.Fatal("error message not recorded")
	}
	if got.RetryCount != 0 {
		t.Fatalf("got retry count %d, want 0", got.RetryCount)
	}
	if fallback.calls.Load() != 0 {
		t.Fatal("fallback attempted after a fatal failure")
	}
}

func TestProcessTransientFailureWithoutFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	primary := &countingAdapter{err: provider.Transient(provider.OpenAIGPT4, errors.New("timeout"))}
	f.register(t, provider.OpenAIGPT4, primary)

	j := f.claimJob(t, provider.OpenAIGPT4, "")
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusFailed)
	}
	if primary.calls.Load() != 1 {
		t.Fatalf("adapter called %d times, want 1", primary.calls.Load())
	}
}

func TestProcessFallbackSameAsPrimary(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	primary := &countingAdapter{err: provider.Transient(provider.OpenAIGPT4, errors.New("timeout"))}
	f.register(t, provider.OpenAIGPT4, primary)

	j := f.claimJob(t, provider.OpenAIGPT4, provider.OpenAIGPT4)
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusFailed)
	}
	if primary.calls.Load() != 1 {
		t.Fatalf("adapter called %d times, want 1", primary.calls.Load())
	}
}

func TestProcessUnknownProviderFailsFatally(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	j := f.claimJob(t, "nonexistent", provider.AnthropicClaude)
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusFailed)
	}
	if got.RetryCount != 0 {
		t.Fatal("unknown provider should not consume a fallback attempt")
	}
}

func TestProcessUnavailableProviderFailsFatally(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	fallback := &countingAdapter{result: &provider.Result{Summary: "never"}}
	f.registry.Register(provider.Descriptor{ID: provider.OpenAIGPT4, Available: false}, &countingAdapter{})
	f.register(t, provider.AnthropicClaude, fallback)

	j := f.claimJob(t, provider.OpenAIGPT4, provider.AnthropicClaude)
	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusFailed)
	}
	if fallback.calls.Load() != 0 {
		t.Fatal("fallback attempted after an unavailable-provider failure")
	}
}

func TestProcessMissingDocumentFailsFatally(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	primary := &countingAdapter{result: &provider.Result{Summary: "never"}}
	f.register(t, provider.OpenAIGPT4, primary)

	// Point the processor at an empty document store so the load fails.
	docs := memory.New()
	logger := testLogger()
	p := NewProcessor(f.store, docs, f.registry, ext.NewRegistry(logger), backoff.NewConstant(0), logger, nil)

	j := f.claimJob(t, provider.OpenAIGPT4, provider.AnthropicClaude)
	if err := p.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.Status != job.StatusFailed {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusFailed)
	}
	if primary.calls.Load() != 0 {
		t.Fatal("adapter called despite the missing document")
	}
}

func TestProcessRecordsProcessingTime(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, provider.OpenAIGPT4, &countingAdapter{result: &provider.Result{Summary: "done"}})

	j := f.claimJob(t, provider.OpenAIGPT4, "")
	started := time.Now().UTC().Add(-3 * time.Second)
	j.StartedAt = &started

	if err := f.processor.Process(context.Background(), j); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := f.stored(t, j.ID)
	if got.ProcessingTime < 3*time.Second {
		t.Fatalf("got processing time %v, want >= 3s", got.ProcessingTime)
	}
}
