package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
)

// mockRecorder captures audit events for assertions.
type mockRecorder struct {
	mu     sync.Mutex
	events []*AuditEvent
	err    error
}

func (m *mockRecorder) Record(_ context.Context, evt *AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) last() *AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) findByAction(action string) *AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJob() *job.Job {
	j := job.New(id.NewDocumentID(), "openai_gpt4", "anthropic_claude")
	j.EstimatedCost = 0.12
	return j
}

func TestOnJobEnqueued(t *testing.T) {
	t.Parallel()

	rec := &mockRecorder{}
	e := New(rec, WithLogger(testLogger()))
	j := testJob()

	if err := e.OnJobEnqueued(context.Background(), j); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ActionJobEnqueued {
		t.Fatalf("got action %q, want %q", evt.Action, ActionJobEnqueued)
	}
	if evt.Category != CategoryJob || evt.Resource != ResourceJob {
		t.Fatalf("got category %q / resource %q", evt.Category, evt.Resource)
	}
	if evt.ResourceID != j.ID.String() {
		t.Fatalf("got resource id %q, want %q", evt.ResourceID, j.ID)
	}
	if evt.Severity != SeverityInfo || evt.Outcome != OutcomeSuccess {
		t.Fatalf("got severity %q / outcome %q", evt.Severity, evt.Outcome)
	}
	if evt.Metadata["provider"] != "openai_gpt4" {
		t.Fatalf("metadata mismatch: %v", evt.Metadata)
	}
	if evt.Metadata["estimated_cost"] != 0.12 {
		t.Fatalf("metadata mismatch: %v", evt.Metadata)
	}
}

func TestOnJobFallbackCarriesCause(t *testing.T) {
	t.Parallel()

	rec := &mockRecorder{}
	e := New(rec, WithLogger(testLogger()))

	cause := errors.New("rate limited")
	if err := e.OnJobFallback(context.Background(), testJob(), "anthropic_claude", cause); err != nil {
		t.Fatalf("OnJobFallback: %v", err)
	}

	evt := rec.findByAction(ActionJobFallback)
	if evt == nil {
		t.Fatal("no fallback event recorded")
	}
	if evt.Severity != SeverityWarning || evt.Outcome != OutcomeFailure {
		t.Fatalf("got severity %q / outcome %q", evt.Severity, evt.Outcome)
	}
	if evt.Reason != "rate limited" || evt.Metadata["error"] != "rate limited" {
		t.Fatalf("cause not captured: reason=%q meta=%v", evt.Reason, evt.Metadata)
	}
	if evt.Metadata["fallback_provider"] != "anthropic_claude" {
		t.Fatalf("metadata mismatch: %v", evt.Metadata)
	}
}

func TestOnJobCompletedMetadata(t *testing.T) {
	t.Parallel()

	rec := &mockRecorder{}
	e := New(rec, WithLogger(testLogger()))

	j := testJob()
	j.ProviderUsed = "anthropic_claude"
	j.ActualTokens = 400
	j.ActualCost = 0.08

	if err := e.OnJobCompleted(context.Background(), j, 2*time.Second); err != nil {
		t.Fatalf("OnJobCompleted: %v", err)
	}

	evt := rec.last()
	if evt.Metadata["provider_used"] != "anthropic_claude" {
		t.Fatalf("metadata mismatch: %v", evt.Metadata)
	}
	if evt.Metadata["actual_tokens"] != 400 || evt.Metadata["elapsed_ms"] != int64(2000) {
		t.Fatalf("metadata mismatch: %v", evt.Metadata)
	}
}

func TestOnJobFailedSeverity(t *testing.T) {
	t.Parallel()

	rec := &mockRecorder{}
	e := New(rec, WithLogger(testLogger()))

	if err := e.OnJobFailed(context.Background(), testJob(), errors.New("all providers failed")); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	evt := rec.last()
	if evt.Severity != SeverityCritical || evt.Outcome != OutcomeFailure {
		t.Fatalf("got severity %q / outcome %q", evt.Severity, evt.Outcome)
	}
}

func TestActionFiltering(t *testing.T) {
	t.Parallel()

	rec := &mockRecorder{}
	e := New(rec, WithLogger(testLogger()), WithActions(ActionJobFailed))
	ctx := context.Background()
	j := testJob()

	if err := e.OnJobEnqueued(ctx, j); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}
	if err := e.OnJobStarted(ctx, j); err != nil {
		t.Fatalf("OnJobStarted: %v", err)
	}
	if err := e.OnJobFailed(ctx, j, errors.New("boom")); err != nil {
		t.Fatalf("OnJobFailed: %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("got %d events, want 1", rec.count())
	}
	if rec.last().Action != ActionJobFailed {
		t.Fatalf("got action %q, want %q", rec.last().Action, ActionJobFailed)
	}
}

func TestRecorderErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	rec := &mockRecorder{err: errors.New("sink down")}
	e := New(rec, WithLogger(testLogger()))

	// Recorder failures must never surface to the job pipeline.
	if err := e.OnJobEnqueued(context.Background(), testJob()); err != nil {
		t.Fatalf("OnJobEnqueued: %v", err)
	}
}

func TestAllActions(t *testing.T) {
	t.Parallel()

	actions := AllActions()
	if len(actions) != 6 {
		t.Fatalf("got %d actions, want 6", len(actions))
	}
	seen := make(map[string]bool, len(actions))
	for _, a := range actions {
		if seen[a] {
			t.Fatalf("duplicate action %q", a)
		}
		seen[a] = true
	}
}
