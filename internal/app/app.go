// Package app wires configuration, storage, the reminder scheduler and the
// Telegram bot together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reviewbot/internal/ai"
	"github.com/example/reviewbot/internal/bot"
	"github.com/example/reviewbot/internal/config"
	"github.com/example/reviewbot/internal/database"
	"github.com/example/reviewbot/internal/excel"
	"github.com/example/reviewbot/internal/review"
	"github.com/example/reviewbot/internal/scheduler"
)

// Run loads configuration and serves the bot until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("log_level", cfg.Log.Level),
		slog.Bool("scheduler", cfg.Scheduler.Enabled),
		slog.Bool("assistant", cfg.OpenAI.AssistantEnabled()),
	)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	files := database.NewFileRepository(db)
	words := database.NewWordRepository(db)

	deps := bot.Deps{
		Manager: review.NewManager(files, words, review.Defaults{
			DailyWords: cfg.Review.DailyWords,
			StrategyID: cfg.Review.DefaultStrategy,
		}, logger),
		Files:        files,
		Translations: words,
		Importer:     excel.NewImporter(files),
		IsAdmin:      cfg.Telegram.IsAdmin,
		NotifyChatID: cfg.Telegram.NotifyChatID,
		Logger:       logger,
	}
	if cfg.OpenAI.AssistantEnabled() {
		engine, err := ai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		if err != nil {
			return err
		}
		deps.Engine = engine
	}

	api, err := bot.NewAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
	if err != nil {
		return err
	}
	b := bot.New(api, deps)

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(files, b, scheduler.Config{
			At:        cfg.Scheduler.ReminderTime,
			StartHour: cfg.Scheduler.StartHour,
			EndHour:   cfg.Scheduler.EndHour,
			Location:  loc,
		}, logger)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
		b.SetChecker(sched)
	}

	err = b.Run(ctx, api)
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}
