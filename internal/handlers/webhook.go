package handlers

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot/models"
	"github.com/labstack/echo/v4"

	"github.com/edgard/contactrelay/internal/webhook"
)

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler processes one Telegram update.
type UpdateHandler interface {
	Handle(ctx context.Context, update *models.Update) webhook.Result
}

// WebhookHandler serves POST /telegram-webhook.
type WebhookHandler struct {
	updates UpdateHandler
	secret  string
	logger  *slog.Logger
}

// NewWebhookHandler creates the inbound update handler. An empty secret
// disables the header check.
func NewWebhookHandler(log *slog.Logger, updates UpdateHandler, secret string) *WebhookHandler {
	return &WebhookHandler{
		updates: updates,
		secret:  secret,
		logger:  log.With(slog.String("handler", "webhook")),
	}
}

// Register mounts the webhook endpoint.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/telegram-webhook", h.Receive)
}

// Receive acknowledges every update with 200 so Telegram never redelivers it.
// The only exception is a request without the configured secret token.
func (h *WebhookHandler) Receive(c echo.Context) (err error) {
	ctx := c.Request().Context()

	if h.secret != "" {
		got := c.Request().Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.WarnContext(ctx, "Rejected webhook request with invalid secret token", "remote_ip", c.RealIP())
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.ErrorContext(ctx, "Panic while handling update", "panic", r)
			err = c.JSON(http.StatusOK, webhook.Result{OK: true, Error: fmt.Sprint(r)})
		}
	}()

	var update models.Update
	if bindErr := c.Bind(&update); bindErr != nil {
		h.logger.WarnContext(ctx, "Invalid update payload", "error", bindErr)
		return c.JSON(http.StatusOK, webhook.Result{OK: true, Error: "invalid update payload: " + bindMessage(bindErr)})
	}

	return c.JSON(http.StatusOK, h.updates.Handle(ctx, &update))
}
