// Package backoff provides delay strategies consulted between a failed
// primary attempt and the fallback attempt. Strategies are stateless
// and safe for concurrent use.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before retry attempt n. Attempts are
// 1-indexed; attempt 1 is the first retry after the initial failure.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// capped bounds d to max when max is positive.
func capped(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// doubling returns initial * 2^(attempt-1), saturating at max.
func doubling(initial, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
		if d < 0 { // overflow
			return max
		}
	}
	return capped(d, max)
}

// Constant waits the same interval on every attempt.
type Constant struct {
	Interval time.Duration
}

func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

func (c *Constant) Delay(_ int) time.Duration { return c.Interval }

// Linear waits Initial * attempt, capped at Max.
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

func (l *Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return capped(l.Initial*time.Duration(attempt), l.Max)
}

// Exponential doubles the wait on each attempt, capped at Max.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

func (e *Exponential) Delay(attempt int) time.Duration {
	return doubling(e.Initial, e.Max, attempt)
}

// ExponentialWithJitter picks a uniform delay in [0, exponential),
// which spreads out retries from workers that failed at the same time.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

func (e *ExponentialWithJitter) Delay(attempt int) time.Duration {
	upper := doubling(e.Initial, e.Max, attempt)
	if upper <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(upper)))
}

// DefaultStrategy is what the processor uses when no strategy is
// configured: exponential, 2s initial, capped at one minute.
func DefaultStrategy() Strategy {
	return NewExponential(2*time.Second, time.Minute)
}
