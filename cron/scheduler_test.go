package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"@every 1h", "@hourly", "*/5 * * * *", "0 3 * * 0"} {
		if _, err := ParseSchedule(expr); err != nil {
			t.Errorf("ParseSchedule(%q) = %v, want nil", expr, err)
		}
	}
	for _, expr := range []string{"", "not a schedule", "* * *"} {
		if _, err := ParseSchedule(expr); err == nil {
			t.Errorf("ParseSchedule(%q) = nil, want error", expr)
		}
	}
}

func TestRegisterBadSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(WithLogger(testLogger()))
	err := s.Register("broken", "every hour or so", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestRegisterSetsNextRun(t *testing.T) {
	t.Parallel()

	s := NewScheduler(WithLogger(testLogger()))
	if err := s.Register("cleanup", "@every 1h", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tasks := s.Tasks()
	next, ok := tasks["cleanup"]
	if !ok {
		t.Fatal("task not listed")
	}
	until := time.Until(next)
	if until < 59*time.Minute || until > 61*time.Minute {
		t.Fatalf("next activation in %v, want about an hour", until)
	}
}

func TestTaskFires(t *testing.T) {
	t.Parallel()

	s := NewScheduler(WithLogger(testLogger()), WithTickInterval(5*time.Millisecond))

	var fired atomic.Int64
	if err := s.Register("counter", "@every 1h", func(context.Context) error {
		fired.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Rewind the clock so the task is immediately due.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background()) //nolint:errcheck

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("task never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTaskErrorKeepsSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(WithLogger(testLogger()), WithTickInterval(5*time.Millisecond))

	var fired atomic.Int64
	if err := s.Register("flaky", "@every 1ms", func(context.Context) error {
		fired.Add(1)
		return errors.New("task broke")
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("task fired %d times, want at least 2", fired.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
