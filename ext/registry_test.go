package ext

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/digest/id"
	"github.com/xraph/digest/job"
)

// recordingExt implements every lifecycle hook and records the order of
// events it receives.
type recordingExt struct {
	name   string
	events []string
	err    error
}

func (r *recordingExt) Name() string { return r.name }

func (r *recordingExt) OnJobEnqueued(context.Context, *job.Job) error {
	r.events = append(r.events, "enqueued")
	return r.err
}

func (r *recordingExt) OnJobStarted(context.Context, *job.Job) error {
	r.events = append(r.events, "started")
	return r.err
}

func (r *recordingExt) OnJobFallback(context.Context, *job.Job, string, error) error {
	r.events = append(r.events, "fallback")
	return r.err
}

func (r *recordingExt) OnJobCompleted(context.Context, *job.Job, time.Duration) error {
	r.events = append(r.events, "completed")
	return r.err
}

func (r *recordingExt) OnJobFailed(context.Context, *job.Job, error) error {
	r.events = append(r.events, "failed")
	return r.err
}

func (r *recordingExt) OnJobCancelled(context.Context, *job.Job) error {
	r.events = append(r.events, "cancelled")
	return r.err
}

func (r *recordingExt) OnShutdown(context.Context) error {
	r.events = append(r.events, "shutdown")
	return r.err
}

// startedOnlyExt opts in to a single hook.
type startedOnlyExt struct {
	started int
}

func (s *startedOnlyExt) Name() string { return "started-only" }

func (s *startedOnlyExt) OnJobStarted(context.Context, *job.Job) error {
	s.started++
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testJob() *job.Job {
	return job.New(id.NewDocumentID(), "openai_gpt4", "")
}

func TestRegistryDispatchesAllHooks(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	rec := &recordingExt{name: "recorder"}
	r.Register(rec)

	ctx := context.Background()
	j := testJob()

	r.EmitJobEnqueued(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobFallback(ctx, j, "anthropic_claude", errors.New("timeout"))
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitJobFailed(ctx, j, errors.New("boom"))
	r.EmitJobCancelled(ctx, j)
	r.EmitShutdown(ctx)

	want := []string{"enqueued", "started", "fallback", "completed", "failed", "cancelled", "shutdown"}
	if len(rec.events) != len(want) {
		t.Fatalf("got %d events, want %d: %v", len(rec.events), len(want), rec.events)
	}
	for i, evt := range want {
		if rec.events[i] != evt {
			t.Fatalf("event %d: got %q, want %q", i, rec.events[i], evt)
		}
	}
}

func TestRegistryOptInHooks(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	s := &startedOnlyExt{}
	r.Register(s)

	ctx := context.Background()
	j := testJob()

	// Only the started hook is implemented; the rest must be no-ops.
	r.EmitJobEnqueued(ctx, j)
	r.EmitJobStarted(ctx, j)
	r.EmitJobCompleted(ctx, j, time.Second)
	r.EmitShutdown(ctx)

	if s.started != 1 {
		t.Fatalf("got %d started events, want 1", s.started)
	}
}

func TestRegistryHookErrorsDoNotStopDispatch(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	failing := &recordingExt{name: "failing", err: errors.New("hook broke")}
	healthy := &recordingExt{name: "healthy"}
	r.Register(failing)
	r.Register(healthy)

	r.EmitJobStarted(context.Background(), testJob())

	if len(failing.events) != 1 || len(healthy.events) != 1 {
		t.Fatalf("got %d/%d events, want 1/1", len(failing.events), len(healthy.events))
	}
}

func TestRegistryExtensions(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	first := &recordingExt{name: "first"}
	second := &recordingExt{name: "second"}
	r.Register(first)
	r.Register(second)

	exts := r.Extensions()
	if len(exts) != 2 {
		t.Fatalf("got %d extensions, want 2", len(exts))
	}
	if exts[0].Name() != "first" || exts[1].Name() != "second" {
		t.Fatal("extensions not in registration order")
	}
}
