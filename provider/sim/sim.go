// Package sim provides a randomized provider adapter for demos and
// load-testing the scheduler. It simulates latency, transient and fatal
// failures, and token/cost accounting without any network calls.
//
// All randomness flows from an injectable seed so tests can run the
// simulator deterministically. There is no ambient global configuration:
// every knob lives on Config and is threaded through at construction.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/xraph/digest/document"
	"github.com/xraph/digest/provider"
)

// Config controls the simulator's failure injection and latency.
type Config struct {
	// FailureRate is the probability [0,1] of a transient failure per attempt.
	FailureRate float64

	// FatalRate is the probability [0,1] of a fatal (non-retryable)
	// failure per attempt, evaluated before FailureRate.
	FatalRate float64

	// SlowRate is the probability [0,1] that an attempt is flagged slow
	// and its latency multiplied by SlowFactor.
	SlowRate float64

	// MinLatency and MaxLatency bound the uniform latency per attempt.
	MinLatency time.Duration
	MaxLatency time.Duration

	// SlowFactor multiplies the latency of slow attempts. Values below 1
	// are treated as 1.
	SlowFactor float64

	// Seed seeds the simulator's RNG. Zero means a time-based seed.
	Seed uint64
}

// DefaultConfig returns the reference demo policy: 10% transient
// failures, 20% slow attempts, 1-10s latency.
func DefaultConfig() Config {
	return Config{
		FailureRate: 0.10,
		FatalRate:   0.0,
		SlowRate:    0.20,
		MinLatency:  1 * time.Second,
		MaxLatency:  10 * time.Second,
		SlowFactor:  3,
	}
}

// Simulator is a provider.Adapter that fabricates summarization results.
// Safe for concurrent use; the RNG is the only shared state and is
// mutex-guarded.
type Simulator struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Simulator with the given config.
func New(cfg Config) *Simulator {
	if cfg.SlowFactor < 1 {
		cfg.SlowFactor = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-crypto seed
	}
	return &Simulator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed)), //nolint:gosec // simulation only
	}
}

// roll draws the per-attempt random decisions under the RNG lock.
func (s *Simulator) roll() (latency time.Duration, fatal, transient bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	span := s.cfg.MaxLatency - s.cfg.MinLatency
	latency = s.cfg.MinLatency
	if span > 0 {
		latency += time.Duration(s.rng.Int64N(int64(span)))
	}
	if s.rng.Float64() < s.cfg.SlowRate {
		latency = time.Duration(float64(latency) * s.cfg.SlowFactor)
	}

	fatal = s.rng.Float64() < s.cfg.FatalRate
	if !fatal {
		transient = s.rng.Float64() < s.cfg.FailureRate
	}
	return latency, fatal, transient
}

// Process implements provider.Adapter. It sleeps for the drawn latency
// (respecting ctx), then either fails with the drawn classification or
// returns a fabricated result priced by the descriptor's unit costs.
func (s *Simulator) Process(ctx context.Context, doc *document.Document, d provider.Descriptor) (*provider.Result, error) {
	latency, fatal, transient := s.roll()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, provider.Transient(d.ID, ctx.Err())
	}

	if fatal {
		return nil, provider.Fatal(d.ID, errors.New("simulated malformed document"))
	}
	if transient {
		return nil, provider.Transient(d.ID, errors.New("simulated provider failure"))
	}

	inputTokens := int(doc.SizeBytes / 4)
	if inputTokens < 1 {
		inputTokens = 1
	}
	outputTokens := inputTokens / 5
	cost := float64(inputTokens)/1000*d.InputCostPer1K + float64(outputTokens)/1000*d.OutputCostPer1K

	return &provider.Result{
		Summary: fmt.Sprintf(
			"Simulated summary of %s: a %s document of %d bytes covering its main subject in brief.",
			doc.OriginalFilename, doc.Type, doc.SizeBytes,
		),
		KeyPoints: []string{
			"Document processed successfully",
			"Provider simulation active",
			fmt.Sprintf("Processed %d bytes", doc.SizeBytes),
			"Cost estimation available",
			"Fallback mechanism ready",
		},
		Entities: []provider.Entity{
			{Type: "organization", Value: "Demo Corp"},
			{Type: "date", Value: "2024-01-15"},
			{Type: "person", Value: "John Demo"},
			{Type: "location", Value: "Demo City"},
			{Type: "money", Value: "$1,234.56"},
		},
		TokensUsed: inputTokens + outputTokens,
		Cost:       cost,
		Provider:   d.ID,
	}, nil
}
