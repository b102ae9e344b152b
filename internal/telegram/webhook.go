package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// WebhookAPI is the part of *bot.Bot used to manage webhook registration.
type WebhookAPI interface {
	GetWebhookInfo(ctx context.Context) (*models.WebhookInfo, error)
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
	DeleteWebhook(ctx context.Context, params *bot.DeleteWebhookParams) (bool, error)
}

// EnsureWebhook registers url as the bot's webhook unless Telegram already
// reports it. It returns true when a registration call was made.
func EnsureWebhook(ctx context.Context, api WebhookAPI, log *slog.Logger, url, secret string, dropPending bool) (bool, error) {
	info, err := api.GetWebhookInfo(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get webhook info: %w", err)
	}

	if info.URL == url {
		log.DebugContext(ctx, "Webhook already registered",
			"pending_updates", info.PendingUpdateCount,
			"last_error", info.LastErrorMessage)
		return false, nil
	}

	log.InfoContext(ctx, "Registering webhook", "previous_url_set", info.URL != "")
	ok, err := api.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:                url,
		SecretToken:        secret,
		DropPendingUpdates: dropPending,
		AllowedUpdates:     []string{"message"},
	})
	if err != nil {
		return false, fmt.Errorf("failed to set webhook: %w", err)
	}
	if !ok {
		return false, fmt.Errorf("telegram refused webhook registration")
	}
	return true, nil
}

// DisableWebhook removes any registered webhook so getUpdates polling works.
func DisableWebhook(ctx context.Context, api WebhookAPI, dropPending bool) error {
	if _, err := api.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
