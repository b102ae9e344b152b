package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/telegram"
)

// newWebhookCheckTask creates the task that re-registers the webhook when
// Telegram reports a different URL, e.g. after another deployment changed it.
func newWebhookCheckTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "webhook_check")

	return func(ctx context.Context) error {
		tg := deps.Config.Telegram
		if deps.Webhook == nil || tg.Inbound != config.InboundWebhook || tg.WebhookURL == "" {
			log.DebugContext(ctx, "Webhook check skipped", "inbound", tg.Inbound, "url_set", tg.WebhookURL != "")
			return nil
		}

		changed, err := telegram.EnsureWebhook(ctx, deps.Webhook, log, tg.WebhookURL, tg.WebhookSecret, false)
		if err != nil {
			return fmt.Errorf("webhook check failed: %w", err)
		}
		if changed {
			log.WarnContext(ctx, "Webhook registration was out of date and has been restored")
		}
		return nil
	}
}
