package sim

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/provider"
)

func fastConfig() Config {
	return Config{
		FailureRate: 0,
		FatalRate:   0,
		SlowRate:    0,
		MinLatency:  time.Millisecond,
		MaxLatency:  2 * time.Millisecond,
		SlowFactor:  1,
		Seed:        42,
	}
}

func newDoc(size int64) *document.Document {
	return document.New("report.pdf", size, "file:///tmp/report.pdf")
}

func TestProcessSuccess(t *testing.T) {
	t.Parallel()

	s := New(fastConfig())
	d := provider.Descriptor{ID: provider.OpenAIGPT4, InputCostPer1K: 0.03, OutputCostPer1K: 0.06}

	res, err := s.Process(context.Background(), newDoc(4000), d)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Provider != provider.OpenAIGPT4 {
		t.Fatalf("got provider %q, want %q", res.Provider, provider.OpenAIGPT4)
	}
	if res.Summary == "" || len(res.KeyPoints) == 0 || len(res.Entities) == 0 {
		t.Fatal("fabricated payload is incomplete")
	}

	// 4000 bytes: 1000 input tokens plus 200 output tokens.
	if res.TokensUsed != 1200 {
		t.Fatalf("got %d tokens, want 1200", res.TokensUsed)
	}
	want := 1.0*0.03 + 0.2*0.06
	if diff := res.Cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("got cost %v, want %v", res.Cost, want)
	}
}

func TestProcessAlwaysTransient(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.FailureRate = 1
	s := New(cfg)

	_, err := s.Process(context.Background(), newDoc(100), provider.Descriptor{ID: provider.OpenAIGPT4})
	if err == nil {
		t.Fatal("expected a simulated failure")
	}
	if !provider.IsTransient(err) || provider.IsFatal(err) {
		t.Fatalf("got %v, want a transient classification", err)
	}
}

func TestProcessAlwaysFatal(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.FatalRate = 1
	s := New(cfg)

	_, err := s.Process(context.Background(), newDoc(100), provider.Descriptor{ID: provider.OpenAIGPT4})
	if err == nil {
		t.Fatal("expected a simulated failure")
	}
	if !provider.IsFatal(err) {
		t.Fatalf("got %v, want a fatal classification", err)
	}
}

func TestProcessDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.FailureRate = 0.5

	run := func() []bool {
		s := New(cfg)
		outcomes := make([]bool, 20)
		for i := range outcomes {
			_, err := s.Process(context.Background(), newDoc(100), provider.Descriptor{ID: provider.OpenAIGPT4})
			outcomes[i] = err == nil
		}
		return outcomes
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("outcome %d differs across identically seeded runs", i)
		}
	}
}

func TestProcessHonorsContext(t *testing.T) {
	t.Parallel()

	cfg := fastConfig()
	cfg.MinLatency = time.Minute
	cfg.MaxLatency = 2 * time.Minute
	s := New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Process(ctx, newDoc(100), provider.Descriptor{ID: provider.OpenAIGPT4})
	if err == nil {
		t.Fatal("expected a context error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Process ignored context cancellation for %v", elapsed)
	}
	if !provider.IsTransient(err) {
		t.Fatalf("got %v, want a transient classification", err)
	}
}
