package runner

import (
	"context"
	"sort"
	"time"
)

// Task is one recurring maintenance pass (integrity repair today; future
// passes register the same way). The runner fires it on its cron schedule
// and bounds each pass by its timeout.
type Task interface {
	// Name identifies the task in logs and in the run-task command.
	Name() string

	// Schedule is the six-field cron expression the runner fires on.
	Schedule() string

	// Run performs one pass. The context carries the pass deadline.
	Run(ctx context.Context) error

	// Timeout bounds a single pass; the runner cancels the context after it.
	Timeout() time.Duration
}

// TaskRegistry is the set of tasks the runner schedules at Start. Tasks are
// keyed by name; registering a duplicate name replaces the earlier task.
type TaskRegistry struct {
	tasks map[string]Task
}

// NewTaskRegistry creates an empty task registry.
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]Task),
	}
}

// Register adds or replaces a task under its name.
func (r *TaskRegistry) Register(task Task) {
	r.tasks[task.Name()] = task
}

// Get looks a task up by name for one-off execution outside its schedule.
func (r *TaskRegistry) Get(name string) (Task, bool) {
	task, exists := r.tasks[name]
	return task, exists
}

// Names returns the registered task names in sorted order.
func (r *TaskRegistry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered tasks keyed by name.
func (r *TaskRegistry) All() map[string]Task {
	return r.tasks
}
