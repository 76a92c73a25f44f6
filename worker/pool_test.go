package worker

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/ext"
	"github.com/xraph/digest/job"
	"github.com/xraph/digest/provider"
)

func TestPoolDrainsQueue(t *testing.T) {
	t.Parallel()

	const total = 12

	f := newFixture(t)
	f.register(t, provider.OpenAIGPT4, &countingAdapter{result: &provider.Result{Summary: "done", TokensUsed: 10}})

	ctx := context.Background()
	doc := document.New("batch.txt", 1024, "file:///tmp/batch.txt")
	if err := f.store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	for i := 0; i < total; i++ {
		if err := f.store.EnqueueJob(ctx, job.New(doc.ID, provider.OpenAIGPT4, "")); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	pool := NewPool(f.store, f.processor, ext.NewRegistry(testLogger()), testLogger(),
		WithPoolConcurrency(4),
		WithPollInterval(5*time.Millisecond),
	)
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := f.store.CountJobs(ctx, job.CountOpts{Status: job.StatusCompleted})
		if err != nil {
			t.Fatalf("CountJobs: %v", err)
		}
		if n == total {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d jobs completed before the deadline", n, total)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPoolStartStopIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pool := NewPool(f.store, f.processor, ext.NewRegistry(testLogger()), testLogger(),
		WithPoolConcurrency(1),
		WithPollInterval(5*time.Millisecond),
	)

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := pool.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := pool.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	if pool.WorkerID().IsNil() {
		t.Fatal("pool has no worker ID")
	}
}
