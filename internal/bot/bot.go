// Package bot runs the intake bot: the Telegram listener and the scheduler,
// started together and stopped together.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Listener receives Telegram updates until ctx is done.
type Listener interface {
	Start(ctx context.Context)
}

// StartupFunc runs once before the listener starts. A failure is logged and
// does not prevent the bot from running.
type StartupFunc func(ctx context.Context) error

// Bot owns the lifecycle of the listener and the scheduler.
type Bot struct {
	logger    *slog.Logger
	listener  Listener
	scheduler *Scheduler
	startup   []StartupFunc
}

// NewBot wires the orchestrator.
func NewBot(logger *slog.Logger, listener Listener, scheduler *Scheduler, startup ...StartupFunc) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		listener:  listener,
		scheduler: scheduler,
		startup:   startup,
	}
}

// Run blocks until ctx is cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	for _, fn := range b.startup {
		if err := fn(ctx); err != nil {
			b.logger.WarnContext(ctx, "Startup step failed", "error", err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
