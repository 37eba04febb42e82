// Package config provides configuration loading and validation for the
// tagstats application. It reads from a YAML file, applies defaults, merges
// TAGSTATS_* environment variables, and validates the result.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components: logging,
// the Telegram transport, ingestion, the database, the stats HTTP server,
// and the weekly digest scheduler.
type Config struct {
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=json text"`

	BotToken   string `mapstructure:"bot_token" validate:"required"`
	BotAdminID int64  `mapstructure:"bot_admin_id" validate:"required,gt=0"`

	DBPath string `mapstructure:"db_path" validate:"required"`

	// ResolverMaxHops bounds the reply-chain walk for hashtag-only messages.
	ResolverMaxHops int `mapstructure:"resolver_max_hops" validate:"min=1,max=100"`

	ServerAddr         string        `mapstructure:"server_addr"`
	ServerReadTimeout  time.Duration `mapstructure:"server_read_timeout" validate:"min=1s"`
	ServerWriteTimeout time.Duration `mapstructure:"server_write_timeout" validate:"min=1s"`

	// DigestCron is the weekly digest schedule in cron syntax.
	DigestCron string `mapstructure:"digest_cron" validate:"required"`
	// DigestLimit is how many contributors the weekly leaderboard shows.
	DigestLimit int `mapstructure:"digest_limit" validate:"min=1,max=50"`
}

// Load reads configuration from config.yaml in the working directory,
// applies defaults for optional fields, and validates the result. A missing
// config file is fine as long as the environment supplies the required
// values.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("TAGSTATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Info("Configuration file not found, using defaults and environment")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"db_path", cfg.DBPath,
		"server_addr", cfg.ServerAddr,
		"resolver_max_hops", cfg.ResolverMaxHops)
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")

	viper.SetDefault("db_path", "tagstats.db")

	viper.SetDefault("resolver_max_hops", 10)

	viper.SetDefault("server_addr", ":8080")
	viper.SetDefault("server_read_timeout", 10*time.Second)
	viper.SetDefault("server_write_timeout", 30*time.Second)

	// Monday 10:00, right after the previous week closes.
	viper.SetDefault("digest_cron", "0 10 * * 1")
	viper.SetDefault("digest_limit", 10)
}
