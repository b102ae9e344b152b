// Package handlers contains the HTTP handlers mounted on the relay server.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edgard/contactrelay/internal/relay"
)

// MessageSender sends validated text messages.
type MessageSender interface {
	Send(ctx context.Context, chatID, message string) (relay.Result, error)
}

// RelayHandler serves POST /send-telegram-message.
type RelayHandler struct {
	sender MessageSender
	logger *slog.Logger
}

// NewRelayHandler creates the outbound send handler.
func NewRelayHandler(log *slog.Logger, sender MessageSender) *RelayHandler {
	return &RelayHandler{sender: sender, logger: log.With(slog.String("handler", "relay"))}
}

// Register mounts the send endpoint.
func (h *RelayHandler) Register(e *echo.Echo) {
	e.POST("/send-telegram-message", h.Send)
}

// SendRequest is the body accepted by the send endpoint.
type SendRequest struct {
	ChatID  ChatID `json:"chat_id"`
	Message string `json:"message"`
}

// SendResponse is always returned with status 200 so browser clients can read it.
type SendResponse struct {
	Success   bool        `json:"success"`
	MessageID json.Number `json:"message_id,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Send decodes the request and relays it to Telegram.
func (h *RelayHandler) Send(c echo.Context) error {
	var req SendRequest
	if err := c.Bind(&req); err != nil {
		h.logger.WarnContext(c.Request().Context(), "Invalid send request body", "error", err)
		return c.JSON(http.StatusOK, SendResponse{Error: "invalid request body: " + bindMessage(err)})
	}

	res, err := h.sender.Send(c.Request().Context(), string(req.ChatID), req.Message)
	if err != nil {
		return c.JSON(http.StatusOK, SendResponse{Error: relay.PublicMessage(err)})
	}
	return c.JSON(http.StatusOK, SendResponse{Success: true, MessageID: json.Number(res.MessageID)})
}

// bindMessage unwraps the client-facing text from an echo binding error.
func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

// ChatID decodes a Telegram chat identifier given as a JSON string or number.
type ChatID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ChatID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ChatID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("chat_id must be a string or a number")
		}
		*id = ChatID(n.String())
		return nil
	}
}
