package logger

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

// InitSentry configures the global Sentry hub. The returned func flushes
// buffered events and must be called before the process exits.
func InitSentry(cfg config.SentryConfig, appEnv, release string) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	env := cfg.Environment
	if env == "" {
		env = appEnv
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      env,
		Release:          release,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	}); err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}
