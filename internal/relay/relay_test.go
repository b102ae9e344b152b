package relay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/logger"
)

// fakeSender replays scripted errors before succeeding.
type fakeSender struct {
	mu     sync.Mutex
	errs   []error
	always error
	calls  []*bot.SendMessageParams
	nextID int
}

func (f *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if f.always != nil {
		return nil, f.always
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	f.nextID++
	return &models.Message{ID: 100 + f.nextID}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingTimer fires immediately and records requested waits.
type recordingTimer struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingTimer) After(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func transportErr() error {
	return fmt.Errorf("error call api, %w", &url.Error{Op: "Post", URL: "https://api.telegram.org/bot/sendMessage", Err: errors.New("connection refused")})
}

func defaultRelayConfig() config.RelayConfig {
	return config.RelayConfig{
		MaxAttempts:      config.DefaultRelayMaxAttempts,
		BaseDelay:        config.DefaultRelayBaseDelay,
		AttemptTimeout:   config.DefaultRelayAttemptTimeout,
		MaxMessageLength: config.DefaultRelayMaxMessageLength,
	}
}

func newTestRelay(sender *fakeSender) (*Relay, *recordingTimer) {
	r := NewRelay(sender, defaultRelayConfig(), logger.Discard())
	timer := &recordingTimer{}
	r.timer = timer
	return r, timer
}

func TestSendValidation(t *testing.T) {
	tests := []struct {
		name    string
		chatID  string
		message string
		kind    Kind
		public  string
	}{
		{"missing chat id", "", "hello", MissingDestination, "chat_id is required"},
		{"empty message", "42", "", EmptyMessage, "message is required"},
		{"whitespace message", "42", " \n\t ", EmptyMessage, "message is required"},
		{"too long", "42", strings.Repeat("a", 2049), MessageTooLong, "Message too long (max 2048 characters)"},
		{"too long in utf16 units", "42", strings.Repeat("😀", 1025), MessageTooLong, "Message too long (max 2048 characters)"},
		{"missing chat id wins over empty message", "", "", MissingDestination, "chat_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			r, _ := newTestRelay(sender)

			_, err := r.Send(context.Background(), tt.chatID, tt.message)
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.public, PublicMessage(err))
			assert.Zero(t, sender.callCount())

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.True(t, rerr.Validation())
		})
	}
}

func TestSendAtLengthLimit(t *testing.T) {
	sender := &fakeSender{}
	r, _ := newTestRelay(sender)

	res, err := r.Send(context.Background(), "42", strings.Repeat("a", 2048))
	require.NoError(t, err)
	assert.Equal(t, "101", res.MessageID)

	// 1024 surrogate pairs are exactly 2048 UTF-16 units.
	_, err = r.Send(context.Background(), "42", strings.Repeat("😀", 1024))
	require.NoError(t, err)
}

func TestSendForwardsBlankChatID(t *testing.T) {
	sender := &fakeSender{}
	r, _ := newTestRelay(sender)

	// Only an absent chat_id is refused locally; Telegram judges the rest.
	_, err := r.Send(context.Background(), "   ", "hello")
	require.NoError(t, err)
	require.Equal(t, 1, sender.callCount())
	assert.Equal(t, "   ", sender.calls[0].ChatID)
}

func TestSendNotConfigured(t *testing.T) {
	r := NewRelay(nil, defaultRelayConfig(), logger.Discard())
	assert.False(t, r.Configured())

	_, err := r.Send(context.Background(), "42", "hello")
	require.Error(t, err)
	assert.True(t, IsKind(err, NotConfigured))
	assert.Equal(t, "Telegram bot token not configured", PublicMessage(err))

	_, err = r.Deliver(context.Background(), &bot.SendMessageParams{ChatID: "42", Text: "x"})
	assert.True(t, IsKind(err, NotConfigured))
}

func TestSendSuccess(t *testing.T) {
	sender := &fakeSender{}
	r, timer := newTestRelay(sender)

	res, err := r.Send(context.Background(), "12345", "<b>hi</b>")
	require.NoError(t, err)
	assert.Equal(t, "101", res.MessageID)

	require.Equal(t, 1, sender.callCount())
	params := sender.calls[0]
	assert.Equal(t, "12345", params.ChatID)
	assert.Equal(t, "<b>hi</b>", params.Text)
	assert.Equal(t, models.ParseModeHTML, params.ParseMode)
	assert.Empty(t, timer.waits)
}

func TestSendRetriesTransientErrors(t *testing.T) {
	sender := &fakeSender{errs: []error{transportErr(), transportErr()}}
	r, timer := newTestRelay(sender)

	res, err := r.Send(context.Background(), "42", "hello")
	require.NoError(t, err)
	assert.Equal(t, "101", res.MessageID)
	assert.Equal(t, 3, sender.callCount())
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, timer.waits)
}

func TestSendExhaustsAttempts(t *testing.T) {
	sender := &fakeSender{always: transportErr()}
	r, timer := newTestRelay(sender)

	_, err := r.Send(context.Background(), "42", "hello")
	require.Error(t, err)
	assert.Equal(t, 3, sender.callCount())
	assert.Len(t, timer.waits, 2)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, DeliveryExhausted, rerr.Kind)
	assert.Equal(t, 3, rerr.Attempts)
	assert.False(t, rerr.Validation())

	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
	assert.Contains(t, PublicMessage(err), "connection refused")
}

func TestSendPlatformRejectionIsNotRetried(t *testing.T) {
	sender := &fakeSender{always: fmt.Errorf("%w, %s", bot.ErrorBadRequest, "Bad Request: chat not found")}
	r, timer := newTestRelay(sender)

	_, err := r.Send(context.Background(), "42", "hello")
	require.Error(t, err)
	assert.Equal(t, 1, sender.callCount())
	assert.Empty(t, timer.waits)
	assert.True(t, IsKind(err, PlatformRejected))
	assert.Equal(t, "Bad Request: chat not found", PublicMessage(err))
	assert.ErrorIs(t, err, bot.ErrorBadRequest)
}

func TestSendWithRealBackoff(t *testing.T) {
	cfg := defaultRelayConfig()
	cfg.BaseDelay = 20 * time.Millisecond
	sender := &fakeSender{errs: []error{transportErr(), transportErr()}}
	r := NewRelay(sender, cfg, logger.Discard())

	start := time.Now()
	_, err := r.Send(context.Background(), "42", "hello")
	elapsed := time.Since(start)
	require.NoError(t, err)
	assert.Equal(t, 3, sender.callCount())
	// 40ms + 80ms of backoff; doubling it would take 240ms.
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
	assert.Less(t, elapsed, 200*time.Millisecond)
}

func TestDeliverStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &fakeSender{always: transportErr()}
	r, _ := newTestRelay(sender)

	_, err := r.Deliver(ctx, &bot.SendMessageParams{ChatID: "42", Text: "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, DeliveryExhausted))
	assert.LessOrEqual(t, sender.callCount(), 1)
}

// cancelingSender cancels the caller's context while Telegram answers.
type cancelingSender struct {
	cancel context.CancelFunc
	reply  error
}

func (s *cancelingSender) SendMessage(context.Context, *bot.SendMessageParams) (*models.Message, error) {
	s.cancel()
	return nil, s.reply
}

func TestRejectionRacingCancellationStaysRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &cancelingSender{
		cancel: cancel,
		reply:  fmt.Errorf("%w, %s", bot.ErrorForbidden, "Forbidden: bot was blocked by the user"),
	}
	r := NewRelay(sender, defaultRelayConfig(), logger.Discard())
	r.timer = &recordingTimer{}

	_, err := r.Send(ctx, "42", "hello")
	require.Error(t, err)
	assert.True(t, IsKind(err, PlatformRejected), "got %v", err)
	assert.Equal(t, "Forbidden: bot was blocked by the user", PublicMessage(err))
}

func TestDeliverPassesReplyMarkup(t *testing.T) {
	sender := &fakeSender{}
	r, _ := newTestRelay(sender)

	markup := &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	msg, err := r.Deliver(context.Background(), &bot.SendMessageParams{ChatID: int64(7), Text: "x", ReplyMarkup: markup})
	require.NoError(t, err)
	assert.Equal(t, 101, msg.ID)
	assert.Same(t, markup, sender.calls[0].ReplyMarkup)
}

func TestBackoff(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, 1000*time.Millisecond, Backoff(base, 1))
	assert.Equal(t, 2000*time.Millisecond, Backoff(base, 2))
	assert.Equal(t, 4000*time.Millisecond, Backoff(base, 3))
}

func TestPublicMessage(t *testing.T) {
	assert.Empty(t, PublicMessage(nil))
	assert.Equal(t, "boom", PublicMessage(errors.New("boom")))
	assert.Equal(t, "Failed to send message", PublicMessage(&Error{Kind: PlatformRejected}))
	assert.Equal(t, "All retry attempts failed", PublicMessage(&Error{Kind: DeliveryExhausted}))
	assert.Equal(t, "delivery_exhausted", DeliveryExhausted.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestDeliverRateLimit(t *testing.T) {
	cfg := defaultRelayConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	sender := &fakeSender{}
	r := NewRelay(sender, cfg, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Send(ctx, "42", "first")
	require.NoError(t, err)

	// The next slot is a second away, past the context deadline.
	_, err = r.Send(ctx, "42", "second")
	require.Error(t, err)
	assert.True(t, IsKind(err, DeliveryExhausted))
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, 1, sender.callCount())
}
