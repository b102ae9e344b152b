package webhook

import (
	"context"
	"log/slog"
)

// Observer is told about failures that never reach the Telegram acknowledgement.
type Observer interface {
	UpsertFailed(ctx context.Context, chatID string, err error)
	NotifyFailed(ctx context.Context, chatID, kind string, err error)
}

type logObserver struct {
	log *slog.Logger
}

// NewLogObserver reports failures as slog error entries.
func NewLogObserver(log *slog.Logger) Observer {
	return logObserver{log: log}
}

func (o logObserver) UpsertFailed(ctx context.Context, chatID string, err error) {
	o.log.ErrorContext(ctx, "Failed to save identity", "chat_id", chatID, "error", err)
}

func (o logObserver) NotifyFailed(ctx context.Context, chatID, kind string, err error) {
	o.log.ErrorContext(ctx, "Failed to send notification", "chat_id", chatID, "kind", kind, "error", err)
}
