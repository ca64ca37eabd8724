package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Provide a path that definitely doesn't exist
	config, err := LoadConfig("non_existent_config.yml")
	require.NoError(t, err)

	assert.Equal(t, "!", config.Bot.Prefix)
	assert.Equal(t, "gemini-2.5-flash", config.AI.Model)
	assert.Equal(t, 30, config.AI.TimeoutSeconds)
	assert.Equal(t, 10, config.AI.HistoryLength)
	assert.Equal(t, 60, config.AI.RequestsPerMinutePerKey)
	assert.Equal(t, 60*time.Second, config.ReminderPollInterval())
	assert.Equal(t, time.Hour, config.ReminderRetryDelay())
	assert.Equal(t, 10*time.Minute, config.DecayInterval())
	assert.Equal(t, "tsundere", config.Personality.Type)
	assert.Equal(t, "data/tsunbot.db", config.Storage.Path)
}

func TestLoadConfig_ValidFile(t *testing.T) {
	content := []byte(`
bot:
  prefix: "?"
ai:
  temperature: 0.4
  history_length: 4
rate_limit:
  window_seconds: 30
reminders:
  poll_interval_seconds: 15
`)
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "?", config.Bot.Prefix)
	assert.Equal(t, 0.4, config.AI.Temperature)
	assert.Equal(t, 4, config.AI.HistoryLength)
	assert.Equal(t, 30*time.Second, config.RateLimitWindow())
	assert.Equal(t, 15*time.Second, config.ReminderPollInterval())

	// Untouched sections keep their defaults.
	assert.Equal(t, 3, config.RateLimit.MaxRequests)
	assert.Equal(t, "gemini-2.5-flash", config.AI.Model)
	assert.Equal(t, 100, config.Games.GuessMax)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("GEMINI_API_KEY", "k1")
	t.Setenv("GEMINI_API_KEY_3", "k3")
	t.Setenv("GEMINI_API_KEY_2", "k2")
	t.Setenv("GEMINI_API_KEYS", "k4, k1")
	t.Setenv("ADMIN_USER_IDS", "100,200")
	t.Setenv("DATABASE_PATH", "/tmp/override.db")

	config := Defaults()
	require.NoError(t, config.LoadSecrets())

	assert.Equal(t, "tok", config.Secrets.DiscordToken)
	assert.Equal(t, []string{"k1", "k2", "k3", "k4"}, config.GeminiKeys())
	assert.True(t, config.IsAdmin("200"))
	assert.False(t, config.IsAdmin("300"))
	assert.Equal(t, "/tmp/override.db", config.Storage.Path)
	assert.NoError(t, config.Validate())
}

func TestValidate_ReportsEverything(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEYS", "")

	config := Defaults()
	require.NoError(t, config.LoadSecrets())
	config.AI.HistoryLength = 0
	config.AI.Temperature = 3
	config.Subscriptions.CheckIntervalMinutes = 0
	config.Games.FastAnswerSeconds = -1

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Contains(t, err.Error(), "ai.history_length")
	assert.Contains(t, err.Error(), "ai.temperature")
	assert.Contains(t, err.Error(), "subscriptions.check_interval_minutes")
	assert.Contains(t, err.Error(), "games.fast_answer_seconds")
}
