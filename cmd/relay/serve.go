package main

import (
	"context"
	"errors"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"

	"github.com/edgard/contactrelay/internal/app"
	"github.com/edgard/contactrelay/internal/database"
	"github.com/edgard/contactrelay/internal/handlers"
	"github.com/edgard/contactrelay/internal/identity"
	"github.com/edgard/contactrelay/internal/logger"
	"github.com/edgard/contactrelay/internal/relay"
	"github.com/edgard/contactrelay/internal/server"
	"github.com/edgard/contactrelay/internal/tasks"
	"github.com/edgard/contactrelay/internal/telegram"
	"github.com/edgard/contactrelay/internal/webhook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay, inbound update processing and scheduled tasks",
		RunE:  runServe,
	}
}

// runServe initializes every component (store, Telegram client, relay,
// webhook handler, HTTP server, scheduler) and blocks until shutdown.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	identities := identity.NewService(store, log)

	var (
		tg         *tgbot.Bot
		sender     telegram.Sender
		webhookAPI telegram.WebhookAPI
	)
	if cfg.TelegramConfigured() {
		tg, err = newTelegram(cfg, log, tgbot.WithMiddlewares(logger.Middleware(log)))
		if err != nil {
			log.Error("Failed to create Telegram bot", "error", err)
			return err
		}
		sender, webhookAPI = tg, tg
	}

	rel := relay.NewRelay(sender, cfg.Relay, log)
	updates := webhook.NewHandler(webhook.Deps{
		Logger:     log,
		Identities: identities,
		Relay:      rel,
		Messages:   cfg.Messages,
		Webhook:    cfg.Webhook,
	})
	if tg != nil {
		tg.RegisterHandlerMatchFunc(func(*models.Update) bool { return true }, updates.BotHandler())
	}

	srv := server.NewServer(log, cfg.Server,
		handlers.NewRelayHandler(log, rel),
		handlers.NewWebhookHandler(log, updates, cfg.Telegram.WebhookSecret),
		handlers.NewHealthHandler(log, store, rel.Configured(), cfg.Telegram.Inbound),
		handlers.NewIdentityHandler(identities),
	)

	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Webhook: webhookAPI,
		Config:  cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	log.Info("Starting relay...")
	runErr := app.NewApp(log, cfg, srv, sched, tg, updates).Run(ctx)
	log.Info("Relay run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Relay stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return runErr
	}

	log.Info("Relay stopped gracefully.")
	return nil
}
