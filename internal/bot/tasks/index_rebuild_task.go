package tasks

import (
	"context"
	"fmt"
	"time"
)

// NewIndexRebuild returns a function that reloads the request index from
// a full ledger scan. It also runs once at startup.
func NewIndexRebuild(deps TaskDeps) ScheduledTaskFunc {
	return newIndexRebuildTask(deps)
}

func newIndexRebuildTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "index_rebuild")

	return func(ctx context.Context) error {
		startTime := time.Now()
		n, err := deps.Index.Rebuild(ctx, deps.Ledger.Scan(ctx))
		if err != nil {
			return fmt.Errorf("index rebuild failed: %w", err)
		}
		log.InfoContext(ctx, "Request index rebuilt", "requests", n, "duration", time.Since(startTime))
		return nil
	}
}
