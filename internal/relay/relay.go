// Package relay delivers outbound text messages through the Telegram Bot API
// with validation, bounded retry and normalized errors.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/avast/retry-go/v4"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/telegram"
)

// Result is the outcome of a successful Send.
type Result struct {
	MessageID string `json:"message_id"`
}

// errRateLimited marks an attempt that never ran because the outbound rate
// limiter could not grant a slot before the context ended.
var errRateLimited = errors.New("outbound rate limit wait aborted")

// Relay sends messages to Telegram chats.
type Relay struct {
	sender  telegram.Sender
	cfg     config.RelayConfig
	logger  *slog.Logger
	limiter *rate.Limiter
	timer   retry.Timer
}

// NewRelay creates a relay. A nil sender makes every call fail with NotConfigured.
func NewRelay(sender telegram.Sender, cfg config.RelayConfig, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = config.DefaultRelayMaxAttempts
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = config.DefaultRelayAttemptTimeout
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = config.DefaultRelayMaxMessageLength
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Relay{
		sender:  sender,
		cfg:     cfg,
		logger:  logger.With("component", "relay"),
		limiter: limiter,
	}
}

// Configured reports whether a Bot API client is available.
func (r *Relay) Configured() bool {
	return r.sender != nil
}

// Send validates the request and delivers message as HTML to chatID.
func (r *Relay) Send(ctx context.Context, chatID, message string) (Result, error) {
	if err := r.validate(chatID, message); err != nil {
		r.logger.WarnContext(ctx, "Send request rejected", "chat_id", chatID, "reason", err.Kind.String())
		return Result{}, err
	}

	r.logger.InfoContext(ctx, "Sending message", "chat_id", chatID, "length", utf16Len(message))
	msg, err := r.Deliver(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      message,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{MessageID: strconv.Itoa(msg.ID)}, nil
}

func (r *Relay) validate(chatID, message string) *Error {
	switch {
	case r.sender == nil:
		return &Error{Kind: NotConfigured, Description: "Telegram bot token not configured"}
	case chatID == "":
		return &Error{Kind: MissingDestination, Description: "chat_id is required"}
	case strings.TrimSpace(message) == "":
		return &Error{Kind: EmptyMessage, Description: "message is required"}
	case utf16Len(message) > r.cfg.MaxMessageLength:
		return &Error{
			Kind:        MessageTooLong,
			Description: "Message too long (max " + strconv.Itoa(r.cfg.MaxMessageLength) + " characters)",
		}
	}
	return nil
}

// Deliver calls sendMessage with params, retrying transport failures. Bot API
// rejections are returned immediately as PlatformRejected.
func (r *Relay) Deliver(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	if r.sender == nil {
		return nil, &Error{Kind: NotConfigured, Description: "Telegram bot token not configured"}
	}

	var (
		attempts int
		lastErr  error
	)
	log := r.logger.With("chat_id", params.ChatID)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(r.cfg.MaxAttempts)),
		retry.Delay(r.cfg.BaseDelay),
		retry.DelayType(r.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && telegram.IsTransient(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.DebugContext(ctx, "Retrying sendMessage",
				"next_attempt", n+2,
				"max_attempts", r.cfg.MaxAttempts,
				"wait", Backoff(r.cfg.BaseDelay, n+1))
		}),
	}
	if r.timer != nil {
		opts = append(opts, retry.WithTimer(r.timer))
	}

	msg, err := retry.DoWithData(func() (*models.Message, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			lastErr = fmt.Errorf("%w: %w", errRateLimited, err)
			return nil, retry.Unrecoverable(lastErr)
		}

		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout)
		defer cancel()

		start := time.Now()
		m, err := r.sender.SendMessage(attemptCtx, params)
		if err != nil {
			lastErr = err
			log.WarnContext(ctx, "sendMessage attempt failed",
				"attempt", attempts,
				"transient", telegram.IsTransient(err),
				"duration", time.Since(start),
				"error", err)
			return nil, err
		}

		log.InfoContext(ctx, "Message delivered",
			"attempt", attempts,
			"message_id", m.ID,
			"duration", time.Since(start))
		return m, nil
	}, opts...)
	if err == nil {
		return msg, nil
	}
	if lastErr == nil {
		lastErr = err
	}

	if exhausted(lastErr) {
		log.ErrorContext(ctx, "Message delivery exhausted", "attempts", attempts, "error", lastErr)
		return nil, &Error{Kind: DeliveryExhausted, Attempts: attempts, Err: lastErr}
	}

	desc := telegram.RejectionDescription(lastErr)
	log.ErrorContext(ctx, "Telegram rejected message", "description", desc)
	return nil, &Error{Kind: PlatformRejected, Description: desc, Attempts: attempts, Err: lastErr}
}

// exhausted reports whether err ends delivery without a Bot API verdict.
// Any reply from Telegram, even one that races with cancellation, is a rejection.
func exhausted(err error) bool {
	return telegram.IsTransient(err) ||
		errors.Is(err, errRateLimited) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// delay implements retry.DelayTypeFunc. retry-go passes the 1-indexed number
// of the attempt that just failed.
func (r *Relay) delay(n uint, _ error, _ *retry.Config) time.Duration {
	return Backoff(r.cfg.BaseDelay, n)
}

// Backoff returns the wait after the given 1-indexed attempt: 2^attempt * base.
func Backoff(base time.Duration, attempt uint) time.Duration {
	return base << attempt
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
