package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler is the narrow contract services use to detach side effects from
// the request path. Scheduled functions run after the delay, are never
// cancelled once scheduled, and must handle their own failures; the scheduler
// only logs.
type Scheduler interface {
	RunAfter(delay time.Duration, name string, fn func(ctx context.Context))
}

// Runner manages cron-scheduled background tasks and one-shot deferred work.
type Runner struct {
	cron     *cron.Cron
	registry *TaskRegistry
	logger   *log.Logger
	baseCtx  context.Context
	wg       sync.WaitGroup
}

// NewRunner creates a new task runner. Deferred functions inherit ctx as
// their base context; cancelling it stops new cron firings but in-flight work
// finishes.
func NewRunner(ctx context.Context, registry *TaskRegistry) *Runner {
	return &Runner{
		cron:     cron.New(cron.WithSeconds()),
		registry: registry,
		logger:   log.New(os.Stdout, "[RUNNER] ", log.LstdFlags),
		baseCtx:  ctx,
	}
}

// Registry exposes the task registry for registration before Start.
func (r *Runner) Registry() *TaskRegistry {
	return r.registry
}

// Start registers all tasks with cron and begins executing them.
func (r *Runner) Start() error {
	for name, task := range r.registry.All() {
		task := task
		r.logger.Printf("Registering task: %s with schedule: %s", name, task.Schedule())

		_, err := r.cron.AddFunc(task.Schedule(), func() {
			r.executeTask(task)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule task %s: %w", name, err)
		}
	}

	r.cron.Start()
	r.logger.Println("Task runner started")
	return nil
}

// RunAfter schedules fn to run once after delay on its own goroutine. The
// call returns immediately; there is no handle to cancel the work.
func (r *Runner) RunAfter(delay time.Duration, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case <-time.After(delay):
		case <-r.baseCtx.Done():
			r.logger.Printf("Deferred task %s dropped: runner shutting down", name)
			return
		}

		start := time.Now()
		fn(r.baseCtx)
		r.logger.Printf("Deferred task %s completed in %v", name, time.Since(start))
	}()
}

// executeTask runs a single cron task with timeout and error handling.
func (r *Runner) executeTask(task Task) {
	r.wg.Add(1)
	defer r.wg.Done()

	taskCtx, cancel := context.WithTimeout(r.baseCtx, task.Timeout())
	defer cancel()

	start := time.Now()
	err := task.Run(taskCtx)
	duration := time.Since(start)

	if err != nil {
		r.logger.Printf("Task %s failed after %v: %v", task.Name(), duration, err)
	} else {
		r.logger.Printf("Task %s completed in %v", task.Name(), duration)
	}
}

// Stop shuts the runner down, waiting for running tasks and deferred work.
func (r *Runner) Stop() {
	r.logger.Println("Stopping task runner...")
	ctx := r.cron.Stop()
	r.wg.Wait()
	<-ctx.Done()
	r.logger.Println("Task runner stopped")
}
