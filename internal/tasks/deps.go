// Package tasks implements the relay's scheduled maintenance tasks.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/telegram"
)

// Maintainer runs storage maintenance.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains the dependencies required by scheduled tasks.
// Webhook is nil when no Bot API token is configured.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   Maintainer
	Webhook telegram.WebhookAPI
	Config  *config.Config
}
