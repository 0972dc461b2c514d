// Package logger builds the structured slog logger shared by the tracker binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

// New creates a logger from cfg with a fixed level.
func New(cfg config.Config) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Logger.Level))
	return NewWithLevel(cfg, level)
}

// NewWithLevel creates a logger whose level follows the provided LevelVar, so
// it can be changed at runtime on config reload.
func NewWithLevel(cfg config.Config, level *slog.LevelVar) *slog.Logger {
	if level == nil {
		level = new(slog.LevelVar)
		level.Set(ParseLevel(cfg.Logger.Level))
	}

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: Redact}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		handler = slog.NewTextHandler(output(cfg.Logger), opts)
	} else {
		handler = slog.NewJSONHandler(output(cfg.Logger), opts)
	}

	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{
			Level:       slog.LevelError,
			AddSource:   true,
			ReplaceAttr: Redact,
		}.NewSentryHandler()
		handler = newFanoutHandler(handler, sentryHandler)
	}

	base := slog.New(handler)
	if cfg.AppEnv != "" {
		base = base.With(slog.String("env", cfg.AppEnv))
	}

	return base
}

// ParseLevel maps a config level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func output(cfg config.LoggerConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}

	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	})
}
