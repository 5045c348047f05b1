package tasks

import (
	"context"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/service"
)

// IntegrityRepairTask runs the dangling-reference repair pass on a schedule.
type IntegrityRepairTask struct {
	integrity *service.IntegrityService
	schedule  string
}

// NewIntegrityRepairTask creates the task with a six-field cron schedule.
func NewIntegrityRepairTask(integrity *service.IntegrityService, schedule string) *IntegrityRepairTask {
	return &IntegrityRepairTask{integrity: integrity, schedule: schedule}
}

// Name returns the unique name of the task.
func (t *IntegrityRepairTask) Name() string { return "integrity-repair" }

// Schedule returns the cron schedule expression for this task.
func (t *IntegrityRepairTask) Schedule() string { return t.schedule }

// Timeout returns the maximum time this task should run.
func (t *IntegrityRepairTask) Timeout() time.Duration { return 10 * time.Minute }

// Run executes one repair pass.
func (t *IntegrityRepairTask) Run(ctx context.Context) error {
	_, err := t.integrity.CleanupInvalidTicketReferences(ctx)
	return err
}
