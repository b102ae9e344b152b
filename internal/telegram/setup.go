// Package telegram wraps the go-telegram/bot client: construction, error
// classification, reply keyboards and webhook registration.
package telegram

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/edgard/contactrelay/internal/config"
)

// pollTimeout is the long-poll timeout passed alongside a custom HTTP client.
const pollTimeout = time.Minute

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created successfully", "token_prefix", tokenPrefix(token))
	return b, nil
}

// Options translates configuration into bot options. A nil client keeps the
// library's default HTTP client.
func Options(cfg config.TelegramConfig, client bot.HttpClient) []bot.Option {
	var opts []bot.Option
	if cfg.APIURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.APIURL))
	}
	if client != nil {
		opts = append(opts, bot.WithHTTPClient(pollTimeout, client))
	}
	if cfg.SkipGetMe {
		opts = append(opts, bot.WithSkipGetMe())
	}
	if cfg.WebhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}
	return opts
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "..."
	}
	return token[:8] + "..."
}
