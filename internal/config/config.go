package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RewardCoins int64  `env:"REWARD_COINS" envDefault:"5"`

	// Object store references accepted for recommendation images.
	// Empty accepts any https host.
	ImageHosts []string `env:"IMAGE_HOSTS" envSeparator:","`

	// HTTP API
	HTTPAddr       string  `env:"HTTP_ADDR" envDefault:":8080"`
	AuthJWTSecret  string  `env:"AUTH_JWT_SECRET"`
	AuthJWTIssuer  string  `env:"AUTH_JWT_ISSUER"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// Telegram bot, disabled when the token is empty
	BotToken           string `env:"BOT_TOKEN"`
	BotUsername        string `env:"BOT_USERNAME"`
	DropPendingUpdates bool   `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Background jobs
	RecoverySchedule   string        `env:"RECOVERY_SCHEDULE" envDefault:"@every 1m"`
	StoreRetryAttempts uint          `env:"STORE_RETRY_ATTEMPTS" envDefault:"5"`
	StoreRetryMaxWait  time.Duration `env:"STORE_RETRY_MAX_WAIT" envDefault:"2s"`

	// Observability
	LogLevel             slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	OTelExporterEndpoint string     `env:"OTEL_EXPORTER_ENDPOINT"`
	OTelServiceName      string     `env:"OTEL_SERVICE_NAME" envDefault:"shareit"`

	// Telegram logging
	LogTelegramChatID      int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError          int   `env:"LOG_TOPIC_ERROR"`
	LogTopicRegistration   int   `env:"LOG_TOPIC_REGISTRATION"`
	LogTopicRecommendation int   `env:"LOG_TOPIC_RECOMMENDATION"`
	LogTopicClaim          int   `env:"LOG_TOPIC_CLAIM"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.RewardCoins <= 0 {
		errs = append(errs, errors.New("REWARD_COINS must be positive"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.StoreRetryAttempts == 0 {
		errs = append(errs, errors.New("STORE_RETRY_ATTEMPTS must be at least 1"))
	}
	return errors.Join(errs...)
}

// BotEnabled reports whether the Telegram transport should start.
func (c *Config) BotEnabled() bool {
	return c.BotToken != ""
}

// AuthEnabled reports whether the HTTP API can verify identity tokens.
func (c *Config) AuthEnabled() bool {
	return c.AuthJWTSecret != ""
}
