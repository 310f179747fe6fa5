// Package scheduler triggers the retention purge on its configured cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	dErrors "glint/pkg/domain-errors"
)

const taskTimeout = 30 * time.Minute

// Task is a named recurring job.
type Task struct {
	Name     string
	Schedule string // standard 5-field cron expression
	Run      func(ctx context.Context) error
}

// Scheduler runs tasks on cron schedules. It is a thin wrapper over
// robfig/cron that scopes every invocation to the scheduler's lifetime
// context.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddTask schedules a recurring task. Must be called before Start.
func (s *Scheduler) AddTask(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("scheduler: task %q has no run function", task.Name)
	}

	schedule, err := cron.ParseStandard(task.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q for task %q: %w", task.Schedule, task.Name, err)
	}

	s.cron.Schedule(schedule, cron.FuncJob(func() { s.runTask(task) }))

	s.logger.Info("task scheduled", "name", task.Name, "schedule", task.Schedule)
	return nil
}

func (s *Scheduler) runTask(task Task) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	start := time.Now()
	err := task.Run(taskCtx)
	switch {
	case err == nil:
		s.logger.Info("scheduled task completed",
			"task", task.Name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	case isSkipped(err):
		// Another replica holds the run lock; not a failure.
		s.logger.Info("scheduled task skipped", "task", task.Name)
	default:
		s.logger.Warn("scheduled task failed",
			"task", task.Name,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Start begins firing schedules until Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
}

// Stop halts scheduling, cancels in-flight tasks, and waits for them to
// finish. The wait happens outside the mutex: a job fired concurrently with
// Stop takes the mutex to read its context, so holding it here would
// deadlock the shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

func isSkipped(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeConflict)
}
