package telegram

import (
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/go-telegram/bot"
)

// platformErrors are the sentinels go-telegram/bot wraps around ok:false replies.
var platformErrors = []error{
	bot.ErrorForbidden,
	bot.ErrorBadRequest,
	bot.ErrorUnauthorized,
	bot.ErrorNotFound,
	bot.ErrorConflict,
}

// IsTransient reports whether err is a transport failure reaching the Bot API
// (connection errors, DNS failures, timeouts) rather than a logical rejection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Prefixes go-telegram/bot puts in front of replies it cannot map to a sentinel.
const (
	unmappedReplyPrefix = "error response from telegram for method "
	undecodableBody     = "error decode response body for method "
)

// RejectionDescription extracts the Bot API description from a rejection
// error, e.g. "Forbidden: bot was blocked by the user". It returns "" when
// Telegram sent no description.
func RejectionDescription(err error) string {
	if err == nil {
		return ""
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return trimSentinel(tooMany.Message, bot.ErrorTooManyRequests)
	}
	var migrate *bot.MigrateError
	if errors.As(err, &migrate) {
		return trimSentinel(migrate.Message, bot.ErrorBadRequest)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "invalid response from Telegram: " + syntaxErr.Error()
	}

	msg := err.Error()
	for _, sentinel := range platformErrors {
		if errors.Is(err, sentinel) {
			return trimSentinel(msg, sentinel)
		}
	}

	// "<method>, <error_code> <description>"
	if rest, ok := strings.CutPrefix(msg, unmappedReplyPrefix); ok {
		if _, codeAndDesc, ok := strings.Cut(rest, ", "); ok {
			_, desc, _ := strings.Cut(codeAndDesc, " ")
			return strings.TrimSpace(desc)
		}
	}
	if strings.HasPrefix(msg, undecodableBody) {
		return "invalid response from Telegram"
	}
	return msg
}

// trimSentinel strips "<sentinel>, " or "<sentinel>: " from msg.
func trimSentinel(msg string, sentinel error) string {
	rest, ok := strings.CutPrefix(msg, sentinel.Error())
	if !ok {
		return msg
	}
	for _, sep := range []string{", ", ": "} {
		if desc, ok := strings.CutPrefix(rest, sep); ok {
			return desc
		}
	}
	return strings.TrimSpace(rest)
}
