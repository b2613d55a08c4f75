package handlers

import (
	"log/slog"
	"time"

	"github.com/edgard/intakebot/internal/bot/tasks"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/stats"
)

// Scheduler runs a function once after a delay.
type Scheduler interface {
	After(delay time.Duration, name string, fn tasks.ScheduledTaskFunc) error
}

// HandlerDeps provides dependencies for Telegram command handlers.
// Scheduler may be nil, in which case no message is deleted later.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Controller *conversation.Controller
	Aggregator *stats.Aggregator
	Scheduler  Scheduler
}
