// Package webhook processes inbound Telegram updates: it records the sender's
// identity and answers contact shares and /start with onboarding messages.
package webhook

import (
	"context"
	"html"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/identity"
	"github.com/edgard/contactrelay/internal/logger"
	"github.com/edgard/contactrelay/internal/relay"
	"github.com/edgard/contactrelay/internal/telegram"
)

const startCommand = "/start"

// Upserter records sender identities.
type Upserter interface {
	Upsert(ctx context.Context, obs identity.Observation) identity.UpsertResult
}

// Deliverer sends a prepared message with the relay's retry policy.
type Deliverer interface {
	Deliver(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Deps provides dependencies for the update handler.
type Deps struct {
	Logger     *slog.Logger
	Identities Upserter
	Relay      Deliverer
	Messages   config.MessagesConfig
	Webhook    config.WebhookConfig
	// Observer receives failures the handler swallows. Defaults to logging.
	Observer Observer
}

// Result is the acknowledgement body returned to Telegram.
type Result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Handler processes inbound updates. It is safe for concurrent use.
type Handler struct {
	logger     *slog.Logger
	identities Upserter
	relay      Deliverer
	messages   config.MessagesConfig
	cfg        config.WebhookConfig
	observer   Observer

	inflight sync.WaitGroup
}

// NewHandler creates an update handler.
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.With("component", "webhook")

	observer := deps.Observer
	if observer == nil {
		observer = NewLogObserver(log)
	}

	cfg := deps.Webhook
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = config.DefaultWebhookStoreTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = config.DefaultWebhookNotifyTimeout
	}

	return &Handler{
		logger:     log,
		identities: deps.Identities,
		relay:      deps.Relay,
		messages:   deps.Messages,
		cfg:        cfg,
		observer:   observer,
	}
}

// Handle processes one update and always acknowledges it. Result.Error is set
// only when a synchronous notification could not reach Telegram at all.
func (h *Handler) Handle(ctx context.Context, update *models.Update) Result {
	if update == nil || update.Message == nil {
		h.logger.DebugContext(ctx, "Ignoring update without message")
		return Result{OK: true}
	}

	msg := update.Message
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	phone := ""
	if msg.Contact != nil {
		phone = identity.NormalizePhone(msg.Contact.PhoneNumber)
	}

	obs := identity.Observation{ChatID: chatID, PhoneNumber: phone}
	if msg.From != nil {
		obs.Username = msg.From.Username
		obs.FirstName = msg.From.FirstName
		obs.LastName = msg.From.LastName
	}

	log := h.logger.With("chat_id", chatID, "update_id", update.ID)
	log.InfoContext(ctx, "Message received",
		"first_name", obs.FirstName,
		"has_phone", phone != "",
		"is_start", msg.Text == startCommand)

	h.record(ctx, log, obs)

	notes := h.notifications(msg, obs)
	if len(notes) == 0 {
		return Result{OK: true}
	}

	if h.cfg.AsyncNotify {
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.NotifyTimeout)
			defer cancel()
			h.notify(notifyCtx, log, chatID, notes)
		}()
		return Result{OK: true}
	}

	if err := h.notify(ctx, log, chatID, notes); err != nil {
		return Result{OK: true, Error: relay.PublicMessage(err)}
	}
	return Result{OK: true}
}

// Wait blocks until notifications started in async mode have finished.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

// BotHandler adapts Handle for updates received by long polling.
func (h *Handler) BotHandler() bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		h.Handle(ctx, update)
	}
}

func (h *Handler) record(ctx context.Context, log *slog.Logger, obs identity.Observation) {
	if h.identities == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()

	res := h.identities.Upsert(storeCtx, obs)
	if !res.OK() {
		h.observer.UpsertFailed(ctx, obs.ChatID, res.Err)
		return
	}
	log.DebugContext(ctx, "Identity recorded",
		"created", res.Created,
		"state", res.Record.State)
}

// notification is one outbound message triggered by an update.
type notification struct {
	kind   string
	params *bot.SendMessageParams
}

func (h *Handler) notifications(msg *models.Message, obs identity.Observation) []notification {
	var notes []notification
	values := map[string]string{
		"first_name": html.EscapeString(obs.FirstName),
		"chat_id":    obs.ChatID,
		"phone":      html.EscapeString(obs.PhoneNumber),
	}

	if obs.PhoneNumber != "" {
		notes = append(notes, notification{
			kind: "phone_saved",
			params: &bot.SendMessageParams{
				ChatID:      msg.Chat.ID,
				Text:        config.Render(h.messages.PhoneSaved, values),
				ParseMode:   models.ParseModeHTML,
				ReplyMarkup: telegram.RemoveKeyboard(),
			},
		})
	}

	if msg.Text == startCommand {
		notes = append(notes, notification{
			kind: "welcome",
			params: &bot.SendMessageParams{
				ChatID:      msg.Chat.ID,
				Text:        config.Render(h.messages.Welcome, values),
				ParseMode:   models.ParseModeHTML,
				ReplyMarkup: telegram.ContactRequestKeyboard(h.messages.ContactButton),
			},
		})
	}

	return notes
}

// notify sends every notification and returns the first failure that means
// Telegram was unreachable or the relay is not configured.
func (h *Handler) notify(ctx context.Context, log *slog.Logger, chatID string, notes []notification) error {
	if h.relay == nil {
		return nil
	}
	var firstErr error
	for _, n := range notes {
		start := time.Now()
		if _, err := h.relay.Deliver(ctx, n.params); err != nil {
			h.observer.NotifyFailed(ctx, chatID, n.kind, err)
			if firstErr == nil && !relay.IsKind(err, relay.PlatformRejected) {
				firstErr = err
			}
			continue
		}
		log.InfoContext(ctx, "Notification sent", "kind", n.kind, "duration", time.Since(start))
	}
	return firstErr
}
