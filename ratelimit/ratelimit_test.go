package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAcquireUnconfiguredProvider(t *testing.T) {
	t.Parallel()

	m := NewManager()
	if err := m.Acquire(context.Background(), "anything"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	m.Release("anything")

	if got := m.Active("anything"); got != 0 {
		t.Fatalf("got %d active, want 0", got)
	}
}

func TestConcurrencyCap(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{Provider: "openai_gpt4", MaxConcurrency: 2})
	ctx := context.Background()

	if err := m.Acquire(ctx, "openai_gpt4"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := m.Acquire(ctx, "openai_gpt4"); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if got := m.Active("openai_gpt4"); got != 2 {
		t.Fatalf("got %d active, want 2", got)
	}

	// Third slot must block until a release or the context expires.
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := m.Acquire(blocked, "openai_gpt4"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want %v", err, context.DeadlineExceeded)
	}

	m.Release("openai_gpt4")
	if err := m.Acquire(ctx, "openai_gpt4"); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
}

func TestRateLimitBlocks(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{Provider: "openai_gpt4", RateLimit: 5, RateBurst: 1})
	ctx := context.Background()

	// Burst token goes instantly; the next acquire waits ~200ms.
	if err := m.Acquire(ctx, "openai_gpt4"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	start := time.Now()
	if err := m.Acquire(ctx, "openai_gpt4"); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Fatalf("second acquire returned after %v, want a rate-limited wait", elapsed)
	}
}

func TestRateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	m := NewManager(Config{Provider: "openai_gpt4", RateLimit: 0.001, RateBurst: 1})
	ctx := context.Background()

	if err := m.Acquire(ctx, "openai_gpt4"); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := m.Acquire(blocked, "openai_gpt4"); err == nil {
		t.Fatal("expected a context error while waiting on the limiter")
	}
}

func TestSetConfig(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.SetConfig(Config{Provider: "google_gemini", MaxConcurrency: 1})

	ctx := context.Background()
	if err := m.Acquire(ctx, "google_gemini"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got := m.Active("google_gemini"); got != 1 {
		t.Fatalf("got %d active, want 1", got)
	}

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := m.Acquire(blocked, "google_gemini"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want %v", err, context.DeadlineExceeded)
	}
}
