package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/contactrelay/internal/relay"
	"github.com/edgard/contactrelay/internal/telegram"
)

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message through the relay, with the same validation and retries as the HTTP endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			chatID, _ := cmd.Flags().GetString("chat-id")
			message, _ := cmd.Flags().GetString("message")

			var sender telegram.Sender
			if cfg.TelegramConfigured() {
				tg, err := newTelegram(cfg, log)
				if err != nil {
					return err
				}
				sender = tg
			}

			res, err := relay.NewRelay(sender, cfg.Relay, log).Send(cmd.Context(), chatID, message)
			if err != nil {
				return fmt.Errorf("%s", relay.PublicMessage(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "message_id: %s\n", res.MessageID)
			return nil
		},
	}
	cmd.Flags().String("chat-id", "", "Destination Telegram chat id.")
	cmd.Flags().String("message", "", "Message text (HTML parse mode).")
	return cmd
}
