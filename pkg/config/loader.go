// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/<APP_ENV>.yaml plus environment overrides, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// missing env files are fine outside local development
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg, v, err := LoadFile(fmt.Sprintf("./configs/%s.yaml", env))
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// LoadFile reads a single YAML file with environment overrides applied on top.
func LoadFile(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Watch re-reads the config file on change and hands every valid revision to onChange.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}

		log.Info("config reloaded", slog.String("file", e.Name), slog.String("op", e.Op.String()))
		onChange(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "tracker.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.token_ttl", 30*time.Minute)

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)
	v.SetDefault("bot.session_ttl", 30*time.Minute)
	v.SetDefault("bot.state_ttl", time.Hour)
	v.SetDefault("bot.listen", ":8443")
	v.SetDefault("bot.metrics_port", "9100")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.login.limit", 10)
	v.SetDefault("ratelimit.login.window", "1m")
	v.SetDefault("ratelimit.per_user.limit", 30)
	v.SetDefault("ratelimit.per_user.window", "1m")

	v.SetDefault("cache.wallet_ttl", 5*time.Minute)
	v.SetDefault("cache.idempotency_ttl", 24*time.Hour)
}
