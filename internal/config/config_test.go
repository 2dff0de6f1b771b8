package config_test

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmexec/internal/config"
)

func parse(t *testing.T, vars map[string]string) (config.Config, error) {
	t.Helper()
	return config.Parse(env.Options{Environment: vars})
}

func TestParse_Defaults(t *testing.T) {
	c, err := parse(t, map[string]string{
		"LLMEXEC_MODEL":   "gpt-4o-mini",
		"LLMEXEC_API_KEY": "sk-test",
	})
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Env)
	assert.Equal(t, "openai", c.Provider.Name)
	assert.Nil(t, c.Provider.Temperature)
	assert.Equal(t, 60*time.Second, c.Executor.Timeout)
	assert.Equal(t, 3, c.Executor.RetryTimes)
	assert.Equal(t, 4, c.Attempts())
	assert.Equal(t, 2*time.Second, c.Executor.RetryInterval)
	assert.Equal(t, "none", c.Journal.Driver)
	assert.Equal(t, "@daily", c.Journal.PruneSchedule)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
}

func TestParse_Overrides(t *testing.T) {
	c, err := parse(t, map[string]string{
		"LLMEXEC_ENV":                  "dev",
		"LLMEXEC_PROVIDER":             "Anthropic",
		"LLMEXEC_MODEL":                "claude-sonnet",
		"LLMEXEC_API_KEY":              "key",
		"LLMEXEC_TEMPERATURE":          "0.3",
		"LLMEXEC_MAX_TOKENS":           "512",
		"LLMEXEC_RETRY_TIMES":          "0",
		"LLMEXEC_RETRY_INTERVAL":       "1500ms",
		"LLMEXEC_TELEGRAM_ALLOWED_IDS": "1,2,3",
		"LLMEXEC_JOURNAL_DRIVER":       "sqlite",
		"LLMEXEC_JOURNAL_DSN":          "file:journal.db",
		"LLMEXEC_LOG_CONSOLE_LEVEL":    "DEBUG",
	})
	require.NoError(t, err)

	assert.Equal(t, "anthropic", c.Provider.Name)
	require.NotNil(t, c.Provider.Temperature)
	assert.InDelta(t, 0.3, *c.Provider.Temperature, 1e-9)
	assert.Equal(t, 512, c.Provider.MaxTokens)
	assert.Equal(t, 1, c.Attempts())
	assert.Equal(t, 1500*time.Millisecond, c.Executor.RetryInterval)
	assert.Equal(t, []int64{1, 2, 3}, c.Telegram.AllowedIDs)
	assert.Equal(t, "sqlite", c.Journal.Driver)
	assert.Equal(t, "debug", c.Log.ConsoleLevel)
}

func TestParse_Invalid(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{"LLMEXEC_MODEL": "m", "LLMEXEC_API_KEY": "k"}
	}

	cases := map[string]func(map[string]string){
		"missing model":     func(v map[string]string) { delete(v, "LLMEXEC_MODEL") },
		"missing key":       func(v map[string]string) { delete(v, "LLMEXEC_API_KEY") },
		"unknown provider":  func(v map[string]string) { v["LLMEXEC_PROVIDER"] = "cohere" },
		"negative retries":  func(v map[string]string) { v["LLMEXEC_RETRY_TIMES"] = "-1" },
		"bad duration":      func(v map[string]string) { v["LLMEXEC_TIMEOUT"] = "soon" },
		"journal sans dsn":  func(v map[string]string) { v["LLMEXEC_JOURNAL_DRIVER"] = "postgres" },
		"unknown log level": func(v map[string]string) { v["LLMEXEC_LOG_FILE_LEVEL"] = "trace" },
		"webhook sans secret": func(v map[string]string) {
			v["LLMEXEC_HTTP_ADDR"] = ":8080"
			v["LLMEXEC_TELEGRAM_WEBHOOK_URL"] = "https://example.com/telegram/webhook"
		},
		"webhook sans addr": func(v map[string]string) {
			v["LLMEXEC_TELEGRAM_WEBHOOK_URL"] = "https://example.com/telegram/webhook"
			v["LLMEXEC_TELEGRAM_WEBHOOK_SECRET"] = "s3"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			vars := base()
			mutate(vars)
			_, err := parse(t, vars)
			assert.Error(t, err)
		})
	}
}

func TestParse_Webhook(t *testing.T) {
	c, err := parse(t, map[string]string{
		"LLMEXEC_MODEL":                   "m",
		"LLMEXEC_API_KEY":                 "k",
		"LLMEXEC_HTTP_ADDR":               ":8080",
		"LLMEXEC_TELEGRAM_TOKEN":          "123:abc",
		"LLMEXEC_TELEGRAM_WEBHOOK_URL":    "https://example.com/telegram/webhook",
		"LLMEXEC_TELEGRAM_WEBHOOK_SECRET": "s3",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/telegram/webhook", c.Telegram.WebhookURL)
	assert.Equal(t, "s3", c.Telegram.WebhookSecret)
}
