package tasks

import (
	"context"
)

// newSessionEvictionTask forgets senders who pressed the send button and
// never wrote anything.
func newSessionEvictionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_eviction")

	return func(ctx context.Context) error {
		if n := deps.Sessions.EvictIdle(deps.IdleTimeout); n > 0 {
			log.InfoContext(ctx, "Evicted idle sessions", "count", n, "idle_timeout", deps.IdleTimeout)
		}
		return nil
	}
}
