package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultTelegramInbound = InboundWebhook

	DefaultRelayMaxAttempts      = 3
	DefaultRelayBaseDelay        = 500 * time.Millisecond
	DefaultRelayAttemptTimeout   = 10 * time.Second
	DefaultRelayMaxMessageLength = 2048
	DefaultRelayRateLimit        = 25.0
	DefaultRelayRateBurst        = 5

	DefaultWebhookNotifyTimeout = 30 * time.Second
	DefaultWebhookStoreTimeout  = 5 * time.Second

	DefaultServerAddr            = ":8080"
	DefaultServerShutdownTimeout = 10 * time.Second
	DefaultServerAllowOrigin     = "*"

	DefaultDBDriver = "sqlite"
	DefaultDBPath   = "relay.db"

	DefaultSQLMaintenanceSchedule = "0 0 4 * * *"
	DefaultWebhookCheckSchedule   = "0 */15 * * * *"
)

// DefaultMessages are sent to Telegram users when no override is configured.
var DefaultMessages = MessagesConfig{
	Welcome: "Привет, {first_name}!\n\n" +
		"Ваш Telegram ID: <b>{chat_id}</b>\n\n" +
		"Чтобы связать Telegram с контактом в приложении, нажмите кнопку ниже и поделитесь номером телефона.",
	PhoneSaved: "Номер телефона сохранен: <b>{phone}</b>\n" +
		"Теперь можно отправлять вам сообщения из приложения.",
	ContactButton: "Поделиться номером телефона",
}

// Inbound update delivery modes.
const (
	InboundWebhook  = "webhook"
	InboundPolling  = "polling"
	InboundDisabled = "disabled"
)

// Task names known to the scheduler.
const (
	TaskSQLMaintenance = "sql_maintenance"
	TaskWebhookCheck   = "webhook_check"
)

var defaults = map[string]any{
	"logger.level": DefaultLogLevel,
	"logger.json":  DefaultLogJSON,

	"telegram.token":                "",
	"telegram.api_url":              "",
	"telegram.inbound":              DefaultTelegramInbound,
	"telegram.webhook_url":          "",
	"telegram.webhook_secret":       "",
	"telegram.drop_pending_updates": false,
	"telegram.skip_get_me":          false,

	"relay.max_attempts":       DefaultRelayMaxAttempts,
	"relay.base_delay":         DefaultRelayBaseDelay,
	"relay.attempt_timeout":    DefaultRelayAttemptTimeout,
	"relay.max_message_length": DefaultRelayMaxMessageLength,
	"relay.rate_limit":         DefaultRelayRateLimit,
	"relay.rate_burst":         DefaultRelayRateBurst,

	"webhook.async_notify":   false,
	"webhook.notify_timeout": DefaultWebhookNotifyTimeout,
	"webhook.store_timeout":  DefaultWebhookStoreTimeout,

	"server.addr":             DefaultServerAddr,
	"server.shutdown_timeout": DefaultServerShutdownTimeout,
	"server.allow_origin":     DefaultServerAllowOrigin,

	"database.driver": DefaultDBDriver,
	"database.path":   DefaultDBPath,
	"database.dsn":    "",

	"messages.welcome":        DefaultMessages.Welcome,
	"messages.phone_saved":    DefaultMessages.PhoneSaved,
	"messages.contact_button": DefaultMessages.ContactButton,

	"scheduler.tasks." + TaskSQLMaintenance + ".enabled":  false,
	"scheduler.tasks." + TaskSQLMaintenance + ".schedule": DefaultSQLMaintenanceSchedule,
	"scheduler.tasks." + TaskWebhookCheck + ".enabled":    true,
	"scheduler.tasks." + TaskWebhookCheck + ".schedule":   DefaultWebhookCheckSchedule,
}
