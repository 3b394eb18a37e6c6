package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"channel-chatter/internal/analytics"
	"channel-chatter/internal/auth"
	"channel-chatter/internal/bot"
	"channel-chatter/internal/chat"
	"channel-chatter/internal/commands"
	"channel-chatter/internal/config"
	"channel-chatter/internal/discord"
	"channel-chatter/internal/history"
	"channel-chatter/internal/llm"
	"channel-chatter/internal/platform"
	"channel-chatter/internal/prompt"
	"channel-chatter/internal/scheduler"
	"channel-chatter/internal/storage"
	"channel-chatter/internal/tasks"
	"channel-chatter/internal/telegram"
)

const (
	taskBuffer      = 64
	shutdownTimeout = 10 * time.Second
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the messaging platform and serve conversations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(cmd, true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

// adapter is a connected platform client.
type adapter interface {
	Run(ctx context.Context, h platform.Handler) error
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backends := llm.NewBackends(cfg)
	client, err := backends.Chat()
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	evaluator, err := backends.Evaluator()
	if err != nil {
		return fmt.Errorf("create evaluator client: %w", err)
	}

	store := history.NewStore(prompt.Load(cfg.SystemPromptPath, logger))
	snap, err := openSnapshotter(cfg)
	if err != nil {
		return err
	}
	defer snap.Close()
	if err := restoreState(store, snap, cfg.StrictStateLoad, logger); err != nil {
		return err
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.Warn("interaction log disabled", "err", err)
		} else {
			defer fr.Close()
			rec = fr
		}
	}

	operators, err := newOperatorService(cfg)
	if err != nil {
		return err
	}

	var (
		messenger platform.Messenger
		conn      adapter
	)
	switch cfg.Platform {
	case config.PlatformTelegram:
		c, err := telegram.New(cfg.TelegramBotToken, logger)
		if err != nil {
			return err
		}
		messenger, conn = c.Messenger(), c
	default:
		c, err := discord.New(cfg.DiscordToken, cfg.ActivityStatus, logger)
		if err != nil {
			return err
		}
		messenger, conn = c.Messenger(), c
	}

	queue := tasks.NewQueue(cfg.TaskWorkers, taskBuffer, logger)
	queue.Start()

	engine := chat.NewEngine(client, evaluator, cfg.EvaluatorPrompt, logger)
	delivery := platform.Delivery{Messenger: messenger, Threshold: cfg.AttachmentThreshold, Logger: logger}
	b := bot.New(bot.Options{
		Store:  store,
		Engine: engine,
		Dispatcher: commands.NewDispatcher(commands.Options{
			Store:        store,
			Engine:       engine,
			Messenger:    messenger,
			Delivery:     delivery,
			Tasks:        queue,
			Auth:         operators,
			DeleteWindow: cfg.DeleteWindow,
			Logger:       logger,
		}),
		Messenger:   messenger,
		Delivery:    delivery,
		Recorder:    rec,
		Snapshotter: snap,
		Logger:      logger,
	})

	sched := scheduler.New(logger)
	if err := sched.AddJob(cfg.PersistSchedule, "persist", func(context.Context) error { return b.Flush() }); err != nil {
		return err
	}
	if rec != nil {
		if err := sched.AddJob(cfg.ReportSchedule, "daily-report", dailyReport(rec, logger)); err != nil {
			return err
		}
	}
	sched.Start()

	logger.Info("bot starting", "platform", cfg.Platform, "model", cfg.Model, "evaluator", cfg.EvaluatorModel, "backend", cfg.StateBackend)
	runErr := conn.Run(ctx, b)

	sched.Stop()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := queue.Stop(stopCtx); err != nil {
		logger.Warn("background tasks did not finish", "err", err)
	}
	if err := b.Flush(); err != nil {
		logger.Error("final save failed", "err", err)
	}
	logger.Info("bot stopped")
	return runErr
}

func dailyReport(rec storage.Recorder, logger *slog.Logger) scheduler.Job {
	return func(context.Context) error {
		events, err := rec.LoadInteractions()
		if err != nil {
			return fmt.Errorf("load interactions: %w", err)
		}
		stats := analytics.AnalyzeDailyLogs(events, time.Now().UTC())
		logger.Info("daily report", "date", stats.Date, "messages", stats.TotalMessages, "replies", stats.Replies, "summary", stats.GenerateReportSummary())
		return nil
	}
}

func newOperatorService(cfg *config.Config) (*auth.Service, error) {
	var repo auth.Repository
	if cfg.OperatorsFilePath != "" {
		r, err := auth.NewFileRepository(cfg.OperatorsFilePath)
		if err != nil {
			return nil, fmt.Errorf("open operators file: %w", err)
		}
		repo = r
	}
	svc, err := auth.NewWithRepo(repo, cfg.Operators)
	if err != nil {
		return nil, fmt.Errorf("load operators: %w", err)
	}
	return svc, nil
}
