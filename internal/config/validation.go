package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration marks every error produced while loading or validating configuration.
var ErrConfiguration = errors.New("configuration error")

// Validate checks struct tags and the cross-section rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if c.Telegram.Inbound == InboundPolling && c.Telegram.WebhookURL != "" {
		return fmt.Errorf("%w: telegram.webhook_url must be empty when telegram.inbound is polling", ErrConfiguration)
	}

	return nil
}

// TelegramConfigured reports whether a bot token is available for outbound sends.
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.Token != ""
}
