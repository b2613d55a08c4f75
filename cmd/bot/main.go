// Package main contains the entrypoint for the Telegram intake bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/intakebot/internal/bot"
	"github.com/edgard/intakebot/internal/bot/handlers"
	"github.com/edgard/intakebot/internal/bot/tasks"
	"github.com/edgard/intakebot/internal/classifier"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/entity"
	"github.com/edgard/intakebot/internal/gemini"
	"github.com/edgard/intakebot/internal/langdetect"
	"github.com/edgard/intakebot/internal/ledger"
	"github.com/edgard/intakebot/internal/logger"
	"github.com/edgard/intakebot/internal/stats"
	"github.com/edgard/intakebot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run builds every component, runs the bot until ctx is cancelled and
// returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	requests := ledger.NewFileStore(cfg.Storage.Root, log)
	var (
		appender ledger.Appender = requests
		source   stats.Source    = stats.FromLedger(requests, log)
		index    database.Store
	)
	if cfg.Index.Enabled {
		db, err := database.NewDB(cfg.Index.Path)
		if err != nil {
			log.Error("Failed to open request index", "path", cfg.Index.Path, "error", err)
			return 1
		}
		defer database.CloseDB(db)
		index = database.NewStore(db, log)
		appender = database.NewIndexingAppender(requests, index)
		source = database.NewStatsSource(index, source, log)
	}

	keywords, err := classifier.LoadKeywords(cfg.Classifier.ExtraPersonalKeywords, cfg.Classifier.ExtraOfferKeywords)
	if err != nil {
		log.Error("Failed to load classifier keywords", "error", err)
		return 1
	}
	var extractor entity.Extractor = entity.NewMulti(
		entity.NewProse(),
		entity.NewGazetteer(cfg.Classifier.ExtraPersonNames...),
	)
	if cfg.Gemini.Enabled {
		gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
		extractor = entity.NewFallback(gemClient, extractor, log)
	}
	cls := classifier.New(langdetect.New(), extractor, keywords, log)

	sessions := conversation.NewMemoryStore()
	controller := conversation.NewController(sessions, cls, appender, log)

	tDeps := tasks.TaskDeps{
		Logger:      log,
		Sessions:    sessions,
		IdleTimeout: cfg.Session.IdleTimeout,
		Ledger:      requests,
		Index:       index,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Controller: controller,
		Aggregator: stats.NewAggregator(source),
		Scheduler:  sched,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewRequestHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	startup := []bot.StartupFunc{
		func(ctx context.Context) error { return telegram.PublishCommands(ctx, tg, cmdHandlers) },
	}
	if index != nil {
		startup = append(startup, bot.StartupFunc(tasks.NewIndexRebuild(tDeps)))
	}
	app := bot.NewBot(log, tg, sched, startup...)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
