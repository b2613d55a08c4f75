// Package tasks implements the scheduled maintenance jobs of the bot.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/ledger"
)

// SessionEvictor drops dialogue sessions idle for longer than maxIdle.
type SessionEvictor interface {
	EvictIdle(maxIdle time.Duration) int
}

// TaskDeps contains the dependencies of the scheduled tasks. Index is nil
// when the request index is disabled.
type TaskDeps struct {
	Logger      *slog.Logger
	Sessions    SessionEvictor
	IdleTimeout time.Duration
	Ledger      ledger.Scanner
	Index       database.Store
}
