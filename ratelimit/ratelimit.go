// Package ratelimit throttles provider invocations. Each provider can
// carry a sustained requests-per-second limit (token bucket) and a
// concurrency cap matching the upstream vendor's own limits. Workers
// block in Acquire rather than re-enqueueing claimed jobs, so throttling
// never produces an illegal status transition.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config defines the limits for a single provider.
type Config struct {
	// Provider is the provider ID (must match job.Provider values).
	Provider string

	// MaxConcurrency caps how many attempts against this provider may
	// run simultaneously across the local worker pool. Zero means no cap.
	MaxConcurrency int

	// RateLimit is the maximum sustained attempts per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token bucket. Defaults to 1
	// when RateLimit is set.
	RateBurst int
}

// providerState tracks runtime state for a single provider.
type providerState struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

// Manager enforces per-provider limits. Safe for concurrent use.
// Providers with no configuration pass through unthrottled.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]*providerState
}

// NewManager creates a Manager with the given provider configurations.
func NewManager(configs ...Config) *Manager {
	m := &Manager{providers: make(map[string]*providerState, len(configs))}
	for _, cfg := range configs {
		m.providers[cfg.Provider] = newProviderState(cfg)
	}
	return m
}

func newProviderState(cfg Config) *providerState {
	ps := &providerState{}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ps.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.MaxConcurrency > 0 {
		ps.slots = make(chan struct{}, cfg.MaxConcurrency)
	}
	return ps
}

// Acquire blocks until an attempt against the provider is allowed, or
// the context is cancelled. Callers MUST call Release with the same
// provider ID after the attempt finishes.
func (m *Manager) Acquire(ctx context.Context, providerID string) error {
	m.mu.RLock()
	ps := m.providers[providerID]
	m.mu.RUnlock()

	if ps == nil {
		return nil
	}

	if ps.limiter != nil {
		if err := ps.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if ps.slots != nil {
		select {
		case ps.slots <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Release frees the concurrency slot taken by Acquire. It is a no-op
// for unconfigured providers.
func (m *Manager) Release(providerID string) {
	m.mu.RLock()
	ps := m.providers[providerID]
	m.mu.RUnlock()

	if ps == nil || ps.slots == nil {
		return
	}

	select {
	case <-ps.slots:
	default:
	}
}

// SetConfig dynamically installs (or replaces) a provider configuration.
// In-flight attempts keep the slots channel they acquired on.
func (m *Manager) SetConfig(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[cfg.Provider] = newProviderState(cfg)
}

// Active returns the number of in-flight attempts for a provider with a
// concurrency cap, or zero for unconfigured providers.
func (m *Manager) Active(providerID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ps := m.providers[providerID]
	if ps == nil || ps.slots == nil {
		return 0
	}
	return len(ps.slots)
}
