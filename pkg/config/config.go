package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds runtime configuration for the tracker API server and the Telegram frontend.
type Config struct {
	AppEnv    string          `mapstructure:"app_env"`
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	API       APIConfig       `mapstructure:"api"`
	Bot       BotConfig       `mapstructure:"bot"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies" validate:"dive,cidr|ip"`
}

// Addr returns the listen address for net/http.
func (s ServerConfig) Addr() string {
	return ":" + s.Port
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// DSN returns the data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		if d.Path == "" {
			return ":memory:"
		}
		return d.Path
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%s", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

type RedisConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	PoolSize        int           `mapstructure:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `mapstructure:"pool_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"required"`
}

// APIConfig describes how the Telegram frontend reaches the tracker API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BotConfig configures the Telegram frontend. MetricsPort serves the bot's
// /healthz, /readyz and /metrics endpoints.
type BotConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Token       string        `mapstructure:"token" validate:"required_if=Enabled true"`
	Mode        string        `mapstructure:"mode" validate:"omitempty,oneof=polling webhook"`
	WebhookURL  string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	Listen      string        `mapstructure:"listen"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	StateTTL    time.Duration `mapstructure:"state_ttl"`
	MetricsPort string        `mapstructure:"metrics_port"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Whitelist []int64       `mapstructure:"whitelist"`
	Login     RateLimitRule `mapstructure:"login"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
}

// RateLimitRule is a request budget over a window such as "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

type CacheConfig struct {
	WalletTTL      time.Duration `mapstructure:"wallet_ttl"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}
