package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	store      Pinger
	configured bool
	inbound    string
	logger     *slog.Logger
}

// NewHealthHandler creates a health handler. configured reports whether a
// Bot API token is present; inbound is the update delivery mode.
func NewHealthHandler(log *slog.Logger, store Pinger, configured bool, inbound string) *HealthHandler {
	return &HealthHandler{
		store:      store,
		configured: configured,
		inbound:    inbound,
		logger:     log.With(slog.String("handler", "health")),
	}
}

// Register mounts GET /health.
func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health returns 200 when the store answers and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	body := map[string]any{
		"status":              "ok",
		"telegram_configured": h.configured,
		"inbound":             h.inbound,
	}
	if err := h.store.Ping(c.Request().Context()); err != nil {
		h.logger.ErrorContext(c.Request().Context(), "Store ping failed", "error", err)
		body["status"] = "unavailable"
		body["error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}
