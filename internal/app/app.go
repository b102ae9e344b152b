// Package app wires the relay components together and manages their
// lifecycle: the HTTP server, the scheduler and, in polling mode, the
// Telegram update listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/server"
	"github.com/edgard/contactrelay/internal/telegram"
)

// Drainer waits for background work started while handling updates.
type Drainer interface {
	Wait()
}

// App owns the long-running components of the relay.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	server    *server.Server
	scheduler *Scheduler
	tgBot     *tgbot.Bot
	updates   Drainer
}

// NewApp creates the orchestrator. tgBot is nil when no token is configured.
func NewApp(
	logger *slog.Logger,
	cfg *config.Config,
	srv *server.Server,
	scheduler *Scheduler,
	tgBot *tgbot.Bot,
	updates Drainer,
) *App {
	return &App{
		logger:    logger.With("component", "orchestrator"),
		cfg:       cfg,
		server:    srv,
		scheduler: scheduler,
		tgBot:     tgBot,
		updates:   updates,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting relay orchestrator...", "inbound", a.cfg.Telegram.Inbound)

	if err := a.prepareInbound(ctx); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.logger.Error("Error stopping HTTP server", "error", err)
		}
		return nil
	})

	if a.polling() {
		g.Go(func() error {
			a.logger.Info("Starting Telegram long polling...")
			a.tgBot.Start(gCtx)
			a.logger.Info("Telegram long polling stopped.")

			if gCtx.Err() == nil {
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	if a.scheduler != nil {
		g.Go(func() error {
			if err := a.scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			a.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := a.scheduler.Stop(); err != nil {
				a.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	a.logger.Info("Relay running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if a.updates != nil {
		a.logger.Info("Waiting for in-flight notifications...")
		a.updates.Wait()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Relay stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Relay stopped gracefully.")
	return nil
}

// prepareInbound aligns Telegram's webhook registration with the inbound mode.
// Registration failures are logged; the webhook_check task retries them.
func (a *App) prepareInbound(ctx context.Context) error {
	if a.tgBot == nil {
		a.logger.Warn("Telegram bot token not configured; outbound sends will fail and inbound updates are ignored")
		return nil
	}

	tg := a.cfg.Telegram
	switch tg.Inbound {
	case config.InboundPolling:
		if err := telegram.DisableWebhook(ctx, a.tgBot, tg.DropPendingUpdates); err != nil {
			return fmt.Errorf("failed to switch to polling: %w", err)
		}
	case config.InboundWebhook:
		if tg.WebhookURL == "" {
			a.logger.Info("No webhook URL configured; expecting the webhook to be registered externally")
			return nil
		}
		if _, err := telegram.EnsureWebhook(ctx, a.tgBot, a.logger, tg.WebhookURL, tg.WebhookSecret, tg.DropPendingUpdates); err != nil {
			a.logger.Error("Failed to register webhook", "error", err)
		}
	}
	return nil
}

func (a *App) polling() bool {
	return a.tgBot != nil && a.cfg.Telegram.Inbound == config.InboundPolling
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return config.DefaultServerShutdownTimeout
}
