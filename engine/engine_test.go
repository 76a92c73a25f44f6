package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/digest"
	"github.com/xraph/digest/document"
	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
	"github.com/xraph/digest/provider/sim"
	"github.com/xraph/digest/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	p, err := digest.New(
		digest.WithStore(memory.New()),
		digest.WithLogger(testLogger()),
		digest.WithConcurrency(2),
		digest.WithPollInterval(5*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	eng, err := Build(p, opts...)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, d := range provider.DefaultDescriptors() {
		eng.RegisterProvider(d, sim.New(sim.Config{
			MinLatency: time.Millisecond,
			MaxLatency: 2 * time.Millisecond,
			Seed:       1,
		}))
	}
	return eng
}

func createDoc(t *testing.T, eng *Engine) *document.Document {
	t.Helper()
	doc, err := eng.CreateDocument(context.Background(), "report.pdf", 8192, "file:///tmp/report.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	return doc
}

func TestBuildRequiresStore(t *testing.T) {
	t.Parallel()

	p, err := digest.New(digest.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if _, err := Build(p); !errors.Is(err, digest.ErrNoStore) {
		t.Fatalf("got %v, want %v", err, digest.ErrNoStore)
	}
}

func TestSubmitJobComputesEstimates(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	doc := createDoc(t, eng)

	j, err := eng.SubmitJob(context.Background(), doc.ID, provider.OpenAIGPT4, provider.AnthropicClaude)
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if j.Status != job.StatusPending {
		t.Fatalf("got status %q, want %q", j.Status, job.StatusPending)
	}
	// 8192 bytes of PDF at 8 bytes per token.
	if j.EstimatedTokens != 1024 {
		t.Fatalf("got %d estimated tokens, want 1024", j.EstimatedTokens)
	}
	if j.EstimatedCost <= 0 {
		t.Fatalf("got estimated cost %v, want > 0", j.EstimatedCost)
	}

	got, err := eng.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.EstimatedTokens != j.EstimatedTokens {
		t.Fatal("persisted job does not carry the estimate")
	}
}

func TestSubmitJobValidatesProviders(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	doc := createDoc(t, eng)
	ctx := context.Background()

	if _, err := eng.SubmitJob(ctx, doc.ID, "nonexistent", ""); !errors.Is(err, digest.ErrUnknownProvider) {
		t.Fatalf("unknown primary: got %v, want %v", err, digest.ErrUnknownProvider)
	}
	if _, err := eng.SubmitJob(ctx, doc.ID, provider.OpenAIGPT4, "nonexistent"); !errors.Is(err, digest.ErrUnknownProvider) {
		t.Fatalf("unknown fallback: got %v, want %v", err, digest.ErrUnknownProvider)
	}
	if _, err := eng.SubmitJob(ctx, id.NewDocumentID(), provider.OpenAIGPT4, ""); !errors.Is(err, digest.ErrDocumentNotFound) {
		t.Fatalf("missing document: got %v, want %v", err, digest.ErrDocumentNotFound)
	}
}

func TestEstimateCost(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	doc := createDoc(t, eng)

	est, err := eng.EstimateCost(context.Background(), doc.ID, provider.OpenAIGPT4)
	if err != nil {
		t.Fatalf("EstimateCost: %v", err)
	}
	if est.Tokens != 1024 || est.Cost <= 0 {
		t.Fatalf("got estimate %+v", est)
	}

	if _, err := eng.EstimateCost(context.Background(), doc.ID, "nonexistent"); !errors.Is(err, digest.ErrUnknownProvider) {
		t.Fatalf("got %v, want %v", err, digest.ErrUnknownProvider)
	}
}

func TestCancelJob(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	doc := createDoc(t, eng)

	j, err := eng.SubmitJob(context.Background(), doc.ID, provider.OpenAIGPT4, "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if err := eng.CancelJob(context.Background(), j.ID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}

	got, err := eng.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusCancelled {
		t.Fatalf("got status %q, want %q", got.Status, job.StatusCancelled)
	}
}

// lifecycleCounter counts enqueued and cancelled events from the engine.
type lifecycleCounter struct {
	enqueued  int
	cancelled int
}

func (l *lifecycleCounter) Name() string { return "lifecycle-counter" }

func (l *lifecycleCounter) OnJobEnqueued(context.Context, *job.Job) error {
	l.enqueued++
	return nil
}

func (l *lifecycleCounter) OnJobCancelled(context.Context, *job.Job) error {
	l.cancelled++
	return nil
}

var (
	_ ext.JobEnqueued  = (*lifecycleCounter)(nil)
	_ ext.JobCancelled = (*lifecycleCounter)(nil)
)

func TestExtensionReceivesLifecycleEvents(t *testing.T) {
	t.Parallel()

	counter := &lifecycleCounter{}
	eng := newEngine(t, WithExtension(counter))
	doc := createDoc(t, eng)

	j, err := eng.SubmitJob(context.Background(), doc.ID, provider.OpenAIGPT4, "")
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if err := eng.CancelJob(context.Background(), j.ID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}

	if counter.enqueued != 1 || counter.cancelled != 1 {
		t.Fatalf("got %d enqueued / %d cancelled events, want 1 / 1", counter.enqueued, counter.cancelled)
	}
}

func TestEngineProcessesJobs(t *testing.T) {
	t.Parallel()

	eng := newEngine(t)
	ctx := context.Background()
	doc := createDoc(t, eng)

	j, err := eng.SubmitJob(ctx, doc.ID, provider.OpenAIGPT4, provider.AnthropicClaude)
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_ = eng.Stop(stopCtx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := eng.GetJob(ctx, j.ID)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.Status.Terminal() {
			if got.Status != job.StatusCompleted {
				t.Fatalf("got status %q, want %q (error: %s)", got.Status, job.StatusCompleted, got.ErrorMessage)
			}
			if got.Summary == "" || got.ActualTokens == 0 {
				t.Fatal("completed job carries no result payload")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %q after deadline", got.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap, err := eng.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.CompletedJobs != 1 || snap.TotalDocuments != 1 {
		t.Fatalf("snapshot counts off: %+v", snap)
	}
}
