package config

import "time"

// Config defines the application configuration. Values can be set through a YAML
// file or RELAY_* environment variables (e.g., RELAY_TELEGRAM_TOKEN).
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Relay     RelayConfig     `mapstructure:"relay"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Bot API credentials and inbound delivery settings.
type TelegramConfig struct {
	// Token may only be empty when inbound processing is disabled; the relay then
	// reports every send as not configured.
	Token string `mapstructure:"token" validate:"required_unless=Inbound disabled"`
	// APIURL overrides the Bot API server (useful for a local Bot API server).
	APIURL string `mapstructure:"api_url" validate:"omitempty,url"`
	// Inbound selects how updates arrive: "webhook", "polling" or "disabled".
	Inbound            string `mapstructure:"inbound" validate:"oneof=webhook polling disabled"`
	WebhookURL         string `mapstructure:"webhook_url" validate:"omitempty,url"`
	WebhookSecret      string `mapstructure:"webhook_secret"`
	DropPendingUpdates bool   `mapstructure:"drop_pending_updates"`
	SkipGetMe          bool   `mapstructure:"skip_get_me"`
}

// RelayConfig tunes outbound delivery.
type RelayConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts"       validate:"min=1,max=10"`
	BaseDelay        time.Duration `mapstructure:"base_delay"         validate:"min=0,max=1m"`
	AttemptTimeout   time.Duration `mapstructure:"attempt_timeout"    validate:"min=1s,max=2m"`
	MaxMessageLength int           `mapstructure:"max_message_length" validate:"min=1,max=4096"`
	// RateLimit caps sendMessage calls per second across all chats; 0 disables it.
	RateLimit        float64       `mapstructure:"rate_limit"         validate:"min=0"`
	RateBurst        int           `mapstructure:"rate_burst"         validate:"min=0"`
}

// WebhookConfig tunes inbound update processing.
type WebhookConfig struct {
	// AsyncNotify acknowledges the platform before sending confirmation and
	// welcome messages.
	AsyncNotify   bool          `mapstructure:"async_notify"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout" validate:"min=1s,max=5m"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"  validate:"min=100ms,max=1m"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=5m"`
	AllowOrigin     string        `mapstructure:"allow_origin"     validate:"required"`
}

// DatabaseConfig selects the identity store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path   string `mapstructure:"path"   validate:"required_if=Driver sqlite"`
	DSN    string `mapstructure:"dsn"    validate:"required_if=Driver postgres"`
}

// MessagesConfig holds user-facing texts. Placeholders: {first_name}, {chat_id}, {phone}.
type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	PhoneSaved    string `mapstructure:"phone_saved"    validate:"required"`
	ContactButton string `mapstructure:"contact_button" validate:"required"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}
