package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/reelforge/hookrelay/internal/logger"
)

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort string
	Logging    logger.Config

	GitHubWebhookSecret string
	RenderWebhookSecret string

	BotHandle   string
	PipelineURL string
	MaxWorkers  int

	SyncTimeout  time.Duration
	JobRetention time.Duration

	// AllowUnsignedWebhooks disables signature verification. It exists for
	// local integration testing only and is evaluated once at wiring time,
	// never inside the request path.
	AllowUnsignedWebhooks bool

	Database DBConfig
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("BOT_HANDLE", "reelforge")
	viper.SetDefault("PIPELINE_URL", "http://localhost:9090")
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("SYNC_TIMEOUT", "3s")
	viper.SetDefault("JOB_RETENTION", "30m")
	viper.SetDefault("ALLOW_UNSIGNED_WEBHOOKS", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "hookrelay")
	viper.SetDefault("DB_NAME", "hookrelay")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	if viper.GetString("GITHUB_WEBHOOK_SECRET") == "" {
		return nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if viper.GetString("RENDER_WEBHOOK_SECRET") == "" {
		return nil, fmt.Errorf("RENDER_WEBHOOK_SECRET must be set")
	}

	if viper.GetBool("ALLOW_UNSIGNED_WEBHOOKS") {
		slog.Warn("signature verification is DISABLED; never run this way in production")
	}

	return &Config{
		ServerPort: viper.GetString("SERVER_PORT"),
		Logging: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		GitHubWebhookSecret:   viper.GetString("GITHUB_WEBHOOK_SECRET"),
		RenderWebhookSecret:   viper.GetString("RENDER_WEBHOOK_SECRET"),
		BotHandle:             viper.GetString("BOT_HANDLE"),
		PipelineURL:           viper.GetString("PIPELINE_URL"),
		MaxWorkers:            viper.GetInt("MAX_WORKERS"),
		SyncTimeout:           viper.GetDuration("SYNC_TIMEOUT"),
		JobRetention:          viper.GetDuration("JOB_RETENTION"),
		AllowUnsignedWebhooks: viper.GetBool("ALLOW_UNSIGNED_WEBHOOKS"),
		Database: DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
	}, nil
}
