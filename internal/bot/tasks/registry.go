package tasks

import (
	"context"

	"github.com/edgard/intakebot/internal/config"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context
// comes from the scheduler and should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the available tasks keyed by the names used in
// the scheduler configuration. Index tasks are only registered when the
// index is enabled.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Sessions != nil {
		tasks[config.TaskSessionEviction] = newSessionEvictionTask(deps)
	}
	if deps.Index != nil {
		tasks[config.TaskIndexRebuild] = newIndexRebuildTask(deps)
		tasks[config.TaskSQLMaintenance] = newSQLMaintenanceTask(deps)
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
