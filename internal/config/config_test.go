package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Empty(t, cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.InDelta(t, 0.7, cfg.Gemini.Temperature, 0.0001)
	assert.Equal(t, 512, cfg.Gemini.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.Chat.Timeout)
	assert.Equal(t, 5, cfg.Chat.HistoryWindow)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.Equal(t, 60*time.Second, cfg.RateLimit.Window)
	assert.Zero(t, cfg.RateLimit.GlobalRPS)
	assert.True(t, cfg.Exchange.Enabled)
	assert.Equal(t, "./data/exchanges.db", cfg.Exchange.DBPath)
	assert.Equal(t, 720*time.Hour, cfg.Exchange.Retention)
	assert.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{
		"PORT":                       "9000",
		"GEMINI_API_KEY":             "  AIzaKey  ",
		"CHAT_TIMEOUT":               "5s",
		"RATE_LIMIT_REQUESTS":        "3",
		"GLOBAL_REQUESTS_PER_SECOND": "1.5",
		"ALLOWED_ORIGINS":            "https://a.example/, https://b.example ,",
		"LOG_LEVEL":                  "debug",
		"EXCHANGE_LOG_ENABLED":       "false",
		"FRONTEND_URL":               "https://bharathithanikonda.dev",
	})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "AIzaKey", cfg.Gemini.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Chat.Timeout)
	assert.Equal(t, 3, cfg.RateLimit.Requests)
	assert.InDelta(t, 1.5, cfg.RateLimit.GlobalRPS, 0.0001)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.False(t, cfg.Exchange.Enabled)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := map[string]map[string]string{
		"bad duration":     {"CHAT_TIMEOUT": "soon"},
		"zero window":      {"HISTORY_WINDOW": "0"},
		"negative budget":  {"GLOBAL_REQUESTS_PER_SECOND": "-1"},
		"bad level":        {"LOG_LEVEL": "loud"},
		"hot temperature":  {"GEMINI_TEMPERATURE": "3"},
		"zero rate limit":  {"RATE_LIMIT_REQUESTS": "0"},
		"zero queue":       {"EXCHANGE_QUEUE_SIZE": "0"},
		"budget w/o burst": {"GLOBAL_REQUESTS_PER_SECOND": "2", "GLOBAL_BURST": "0"},
	}
	for name, environ := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFrom(environ)
			assert.Error(t, err)
		})
	}
}

func TestZeroTemperatureIsKept(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFrom(map[string]string{"GEMINI_TEMPERATURE": "0"})
	require.NoError(t, err)

	gen := cfg.Gemini.Generation().WithDefaults()
	require.NotNil(t, gen.Temperature)
	assert.Equal(t, 0.0, *gen.Temperature)
	assert.Equal(t, "gemini-2.5-flash", gen.Model)
	assert.Equal(t, 512, gen.MaxOutputTokens)
}
