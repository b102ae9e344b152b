package main

import (
	"fmt"
	"log/slog"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/logger"
	"github.com/edgard/contactrelay/internal/telegram"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Telegram contact relay: outbound sends and inbound identity capture",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.PersistentFlags().String("config", "./config.yaml", "Path to configuration file (optional).")

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newWebhookCmd())
	cmd.AddCommand(newSendCmd())

	return cmd
}

// loadRuntime reads configuration and installs the default logger.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.LoadConfig(path)
	if err != nil {
		slog.Error("Failed to load configuration", "path", path, "error", err)
		return nil, nil, err
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Debug("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	return cfg, log, nil
}

// newTelegram builds the Bot API client or fails when no token is configured.
func newTelegram(cfg *config.Config, log *slog.Logger, opts ...tgbot.Option) (*tgbot.Bot, error) {
	if !cfg.TelegramConfigured() {
		return nil, fmt.Errorf("telegram bot token not configured (set RELAY_TELEGRAM_TOKEN or TELEGRAM_BOT_TOKEN)")
	}
	return telegram.NewTelegramBot(cfg.Telegram.Token, log, append(telegram.Options(cfg.Telegram, nil), opts...)...)
}
