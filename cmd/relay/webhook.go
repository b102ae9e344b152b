package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/contactrelay/internal/telegram"
)

func newWebhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Inspect or change the bot's webhook registration",
	}
	cmd.AddCommand(newWebhookInfoCmd(), newWebhookSetCmd(), newWebhookDeleteCmd())
	return cmd
}

func newWebhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the webhook Telegram currently has on record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			tg, err := newTelegram(cfg, log)
			if err != nil {
				return err
			}

			info, err := tg.GetWebhookInfo(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get webhook info: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "url: %s\n", info.URL)
			fmt.Fprintf(out, "pending_update_count: %d\n", info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "last_error: %s\n", info.LastErrorMessage)
			}
			return nil
		},
	}
}

func newWebhookSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Register the webhook URL (defaults to telegram.webhook_url)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = cfg.Telegram.WebhookURL
			}
			if url == "" {
				return fmt.Errorf("no webhook URL: pass --url or set telegram.webhook_url")
			}
			tg, err := newTelegram(cfg, log)
			if err != nil {
				return err
			}

			changed, err := telegram.EnsureWebhook(cmd.Context(), tg, log, url, cfg.Telegram.WebhookSecret, cfg.Telegram.DropPendingUpdates)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(cmd.OutOrStdout(), "webhook registered: %s\n", url)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "webhook already registered: %s\n", url)
			}
			return nil
		},
	}
	cmd.Flags().String("url", "", "Public HTTPS URL of the /telegram-webhook endpoint.")
	return cmd
}

func newWebhookDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook so getUpdates polling can be used",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			tg, err := newTelegram(cfg, log)
			if err != nil {
				return err
			}
			drop, _ := cmd.Flags().GetBool("drop-pending")
			if err := telegram.DisableWebhook(cmd.Context(), tg, drop); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "webhook deleted")
			return nil
		},
	}
	cmd.Flags().Bool("drop-pending", false, "Drop updates Telegram has queued for the bot.")
	return cmd
}
