package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("RELAY_TELEGRAM_TOKEN", "123:abc")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, DefaultTelegramInbound, cfg.Telegram.Inbound)
	assert.Equal(t, DefaultRelayMaxAttempts, cfg.Relay.MaxAttempts)
	assert.Equal(t, DefaultRelayBaseDelay, cfg.Relay.BaseDelay)
	assert.Equal(t, DefaultRelayAttemptTimeout, cfg.Relay.AttemptTimeout)
	assert.Equal(t, DefaultRelayMaxMessageLength, cfg.Relay.MaxMessageLength)
	assert.InDelta(t, DefaultRelayRateLimit, cfg.Relay.RateLimit, 0.001)
	assert.Equal(t, DefaultRelayRateBurst, cfg.Relay.RateBurst)
	assert.Equal(t, DefaultDBDriver, cfg.Database.Driver)
	assert.Equal(t, DefaultDBPath, cfg.Database.Path)
	assert.Equal(t, DefaultMessages, cfg.Messages)
	require.Contains(t, cfg.Scheduler.Tasks, TaskSQLMaintenance)
	assert.False(t, cfg.Scheduler.Tasks[TaskSQLMaintenance].Enabled)
	assert.True(t, cfg.Scheduler.Tasks[TaskWebhookCheck].Enabled)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: false
telegram:
  token: from-file
  inbound: polling
relay:
  attempt_timeout: 5s
database:
  path: /tmp/relay-test.db
`)
	t.Setenv("RELAY_RELAY_MAX_ATTEMPTS", "5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.False(t, cfg.Logger.JSON)
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, "polling", cfg.Telegram.Inbound)
	assert.Equal(t, 5*time.Second, cfg.Relay.AttemptTimeout)
	assert.Equal(t, 5, cfg.Relay.MaxAttempts)
	assert.Equal(t, "/tmp/relay-test.db", cfg.Database.Path)
}

func TestLoadConfigLegacyTokenEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "legacy-token")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", cfg.Telegram.Token)
	assert.True(t, cfg.TelegramConfigured())
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing token with webhook inbound",
			body: "telegram:\n  inbound: webhook\n",
		},
		{
			name: "unknown log level",
			body: "telegram:\n  token: t\nlogger:\n  level: verbose\n",
		},
		{
			name: "postgres without dsn",
			body: "telegram:\n  token: t\ndatabase:\n  driver: postgres\n",
		},
		{
			name: "zero attempts",
			body: "telegram:\n  token: t\nrelay:\n  max_attempts: 0\n",
		},
		{
			name: "webhook url with polling",
			body: "telegram:\n  token: t\n  inbound: polling\n  webhook_url: https://example.com/hook\n",
		},
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("RELAY_TELEGRAM_TOKEN", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestLoadConfigTokenOptionalWhenInboundDisabled(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("RELAY_TELEGRAM_TOKEN", "")

	cfg, err := LoadConfig(writeConfig(t, "telegram:\n  inbound: disabled\n"))
	require.NoError(t, err)
	assert.False(t, cfg.TelegramConfigured())
}

func TestRender(t *testing.T) {
	got := Render("Hi {first_name}, id <b>{chat_id}</b>", map[string]string{
		"first_name": "Ann",
		"chat_id":    "42",
	})
	assert.Equal(t, "Hi Ann, id <b>42</b>", got)
	assert.Equal(t, "plain", Render("plain", nil))
}
