package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// TaskFunc is the work a scheduled task performs. Errors are logged
// and the task keeps its schedule.
type TaskFunc func(ctx context.Context) error

// Task is one recurring maintenance task.
type Task struct {
	Name     string
	Schedule string
	Func     TaskFunc

	sched     cronlib.Schedule
	nextRunAt time.Time
	lastRunAt time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due tasks.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Scheduler runs registered tasks on a tick loop.
type Scheduler struct {
	logger       *slog.Logger
	tickInterval time.Duration
	now          func() time.Time

	mu    sync.Mutex
	tasks []*Task

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a Scheduler with no tasks registered.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger:       slog.Default(),
		tickInterval: 1 * time.Second,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a task. The first fire happens at the schedule's next
// activation after registration, never immediately.
func (s *Scheduler) Register(name, schedule string, fn TaskFunc) error {
	sched, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("cron: parse schedule %q for %s: %w", schedule, name, err)
	}

	t := &Task{
		Name:     name,
		Schedule: schedule,
		Func:     fn,
		sched:    sched,
	}
	t.nextRunAt = sched.Next(s.now().UTC())

	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	return nil
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(1)
	go s.tickLoop()
	s.logger.Info("cron scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
		slog.Int("tasks", len(s.tasks)),
	)
	return nil
}

// Stop signals the scheduler to stop and waits for the tick loop.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("cron scheduler stopped")
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	now := s.now().UTC()

	s.mu.Lock()
	var due []*Task
	for _, t := range s.tasks {
		if !t.nextRunAt.After(now) {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.fire(t, now)
	}
}

func (s *Scheduler) fire(t *Task, now time.Time) {
	ctx := context.Background()

	if err := t.Func(ctx); err != nil {
		s.logger.Error("cron task failed",
			slog.String("task", t.Name),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Debug("cron task fired", slog.String("task", t.Name))
	}

	s.mu.Lock()
	t.lastRunAt = now
	t.nextRunAt = t.sched.Next(s.now().UTC())
	s.mu.Unlock()
}

// Tasks returns a snapshot of registered task names and their next
// activation times.
func (s *Scheduler) Tasks() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.tasks))
	for _, t := range s.tasks {
		out[t.Name] = t.nextRunAt
	}
	return out
}
