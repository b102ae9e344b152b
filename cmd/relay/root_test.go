package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a token-less config backed by a temporary SQLite file.
func writeConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("RELAY_TELEGRAM_TOKEN", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("logger:\n  level: error\ntelegram:\n  inbound: disabled\ndatabase:\n  driver: sqlite\n  path: %s\n", filepath.Join(dir, "relay.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{{"serve"}, {"migrate"}, {"send"}, {"webhook", "info"}, {"webhook", "set"}, {"webhook", "delete"}} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateCommand(t *testing.T) {
	path := writeConfig(t)

	_, err := execute(t, "migrate", "--config", path)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "relay.db"))
}

func TestSendWithoutToken(t *testing.T) {
	path := writeConfig(t)

	_, err := execute(t, "send", "--config", path, "--chat-id", "42", "--message", "hi")
	require.Error(t, err)
	assert.EqualError(t, err, "Telegram bot token not configured")
}

func TestSendValidationWithoutToken(t *testing.T) {
	path := writeConfig(t)

	// Token presence is checked before the request fields.
	_, err := execute(t, "send", "--config", path)
	assert.EqualError(t, err, "Telegram bot token not configured")
}

func TestWebhookCommandsRequireToken(t *testing.T) {
	path := writeConfig(t)

	for _, sub := range []string{"info", "set", "delete"} {
		t.Run(sub, func(t *testing.T) {
			args := []string{"webhook", sub, "--config", path}
			if sub == "set" {
				args = append(args, "--url", "https://relay.example.com/telegram-webhook")
			}
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "telegram bot token not configured")
		})
	}
}

func TestWebhookSetNeedsURL(t *testing.T) {
	path := writeConfig(t)

	_, err := execute(t, "webhook", "set", "--config", path)
	assert.EqualError(t, err, "no webhook URL: pass --url or set telegram.webhook_url")
}
