package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/edgard/contactrelay/internal/identity"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// IdentityReader looks up recorded Telegram identities.
type IdentityReader interface {
	Get(ctx context.Context, chatID string) (*identity.Record, error)
	FindByPhone(ctx context.Context, phone string) ([]identity.Record, error)
	List(ctx context.Context, limit, offset int) ([]identity.Record, error)
}

// IdentityHandler lets UI callers link contacts to Telegram chats.
type IdentityHandler struct {
	service IdentityReader
}

// NewIdentityHandler creates the identity lookup handler.
func NewIdentityHandler(service IdentityReader) *IdentityHandler {
	return &IdentityHandler{service: service}
}

// Register mounts the identity routes.
func (h *IdentityHandler) Register(e *echo.Echo) {
	group := e.Group("/identities")
	group.GET("", h.List)
	group.GET("/:chat_id", h.Get)
}

// List returns a page of identities, or those matching ?phone=.
func (h *IdentityHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if phone := strings.TrimSpace(c.QueryParam("phone")); phone != "" {
		items, err := h.service.FindByPhone(ctx, phone)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]any{"items": nonNil(items)})
	}

	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil {
		return err
	}
	if limit < 1 || limit > maxPageSize {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageSize))
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	if offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must not be negative")
	}

	items, err := h.service.List(ctx, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": nonNil(items)})
}

// Get returns one identity by chat id.
func (h *IdentityHandler) Get(c echo.Context) error {
	chatID := strings.TrimSpace(c.Param("chat_id"))
	if chatID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chat id is required")
	}
	rec, err := h.service.Get(c.Request().Context(), chatID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "identity not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}

func nonNil(items []identity.Record) []identity.Record {
	if items == nil {
		return []identity.Record{}
	}
	return items
}
