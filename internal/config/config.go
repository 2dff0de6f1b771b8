package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "LLMEXEC_"

// Config holds application configuration values.
type Config struct {
	Env string `env:"ENV" envDefault:"prod" validate:"required,oneof=dev prod"`

	Provider struct {
		Name        string   `env:"PROVIDER" envDefault:"openai" validate:"required,oneof=openai anthropic gemini"`
		BaseURL     string   `env:"BASE_URL" validate:"omitempty,url"`
		Model       string   `env:"MODEL" validate:"required"`
		APIKey      string   `env:"API_KEY" validate:"required"`
		Temperature *float64 `env:"TEMPERATURE" validate:"omitempty,gte=0,lte=2"`
		MaxTokens   int      `env:"MAX_TOKENS" validate:"gte=0"`
	}

	Executor struct {
		Timeout       time.Duration `env:"TIMEOUT" envDefault:"60s" validate:"gte=0"`
		RetryTimes    int           `env:"RETRY_TIMES" envDefault:"3" validate:"gte=0,lte=100"`
		RetryInterval time.Duration `env:"RETRY_INTERVAL" envDefault:"2s" validate:"gte=0"`
	}

	HTTP struct {
		Addr string `env:"HTTP_ADDR"`
	}

	Telegram struct {
		Token         string  `env:"TELEGRAM_TOKEN"`
		AllowedIDs    []int64 `env:"TELEGRAM_ALLOWED_IDS" envSeparator:","`
		WebhookURL    string  `env:"TELEGRAM_WEBHOOK_URL" validate:"omitempty,url"`
		WebhookSecret string  `env:"TELEGRAM_WEBHOOK_SECRET"`
	}

	Journal struct {
		Driver        string        `env:"JOURNAL_DRIVER" envDefault:"none" validate:"oneof=none sqlite postgres"`
		DSN           string        `env:"JOURNAL_DSN"`
		Retention     time.Duration `env:"JOURNAL_RETENTION" envDefault:"720h" validate:"gte=0"`
		PruneSchedule string        `env:"JOURNAL_PRUNE_SCHEDULE" envDefault:"@daily"`
	}

	Log struct {
		ConsoleLevel string `env:"LOG_CONSOLE_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`
		FileLevel    string `env:"LOG_FILE_LEVEL" envDefault:"debug" validate:"required,oneof=debug info warn error"`
		File         string `env:"LOG_FILE"`
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env
// files. Without arguments it looks for .env in the working directory.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return Parse(env.Options{Prefix: Prefix})
}

// Parse reads configuration using the given options. Tests pass
// Environment to avoid touching the process environment.
func Parse(opts env.Options) (Config, error) {
	if opts.Prefix == "" {
		opts.Prefix = Prefix
	}
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	c.Journal.Driver = strings.ToLower(c.Journal.Driver)
	c.Log.ConsoleLevel = strings.ToLower(c.Log.ConsoleLevel)
	c.Log.FileLevel = strings.ToLower(c.Log.FileLevel)

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Journal.Driver != "none" && c.Journal.DSN == "" {
		return Config{}, errors.New(Prefix + "JOURNAL_DSN required when " + Prefix + "JOURNAL_DRIVER is set")
	}
	if c.Telegram.WebhookURL != "" {
		if c.Telegram.WebhookSecret == "" {
			return Config{}, errors.New(Prefix + "TELEGRAM_WEBHOOK_SECRET required when " + Prefix + "TELEGRAM_WEBHOOK_URL is set")
		}
		if c.HTTP.Addr == "" {
			return Config{}, errors.New(Prefix + "HTTP_ADDR required for telegram webhook")
		}
	}
	return c, nil
}

// Attempts returns the total number of attempts a request may take.
func (c Config) Attempts() int { return c.Executor.RetryTimes + 1 }
