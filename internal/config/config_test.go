package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, PlatformDiscord, cfg.Platform)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "http://localhost:11434/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "llama3.1:latest", cfg.Model)
	assert.Equal(t, 2000, cfg.AttachmentThreshold)
	assert.Equal(t, 100, cfg.DeleteWindow)
	assert.Equal(t, StateJSON, cfg.StateBackend)
	assert.True(t, cfg.StrictStateLoad)
}

func TestNewRequiresPlatformToken(t *testing.T) {
	t.Setenv("PLATFORM", "telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := New()
	require.Error(t, err)
}

func TestValidateClampsDeleteWindow(t *testing.T) {
	cfg := &Config{
		Platform:            "Discord",
		DiscordToken:        "x",
		StateBackend:        StateSQLite,
		AttachmentThreshold: 10,
		DeleteWindow:        500,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, PlatformDiscord, cfg.Platform)
	assert.Equal(t, MaxDeleteWindow, cfg.DeleteWindow)
	assert.Equal(t, 1, cfg.TaskWorkers)
}

func TestOperatorsSeparator(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("OPERATORS", "1:2:3")
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.Operators)
}

func TestLoadSkipsPlatformToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "data/chat_history.json", cfg.StateFilePath)

	t.Setenv("STATE_BACKEND", "postgres")
	_, err = Load()
	require.Error(t, err)
}
