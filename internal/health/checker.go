// Package health runs readiness checks against the process dependencies.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

// StatusOK is reported for a passing component.
const StatusOK = "OK"

const defaultCheckTimeout = 3 * time.Second

var errTelegramOffline = errors.New("telegram bot is not initialized or disconnected")

// Checkable is a component that can report its health.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Checker runs named component checks. Each check gets its own deadline so a
// hung dependency does not hide the state of the others.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Checkable
}

func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{log: log, timeout: defaultCheckTimeout, checks: make(map[string]Checkable)}
}

// AddCheck registers check under name, replacing an earlier one.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Names returns the registered component names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type outcome struct {
	name string
	err  error
}

// Check runs every check concurrently. results maps a component to StatusOK
// or its error text; healthy is false when any component failed.
func (c *Checker) Check(ctx context.Context) (results map[string]string, healthy bool) {
	c.mu.RLock()
	pending := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		pending[name] = check
	}
	c.mu.RUnlock()

	done := make(chan outcome, len(pending))
	for name, check := range pending {
		go func() {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			done <- outcome{name: name, err: check.HealthCheck(checkCtx)}
		}()
	}

	results = make(map[string]string, len(pending))
	healthy = true
	for range pending {
		o := <-done
		if o.err == nil {
			results[o.name] = StatusOK
			continue
		}
		healthy = false
		results[o.name] = o.err.Error()
		c.log.Error("health check failed", slog.String("component", o.name), slog.Any("error", o.err))
	}
	return results, healthy
}

// NewDBChecker pings the SQL database.
func NewDBChecker(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return sql.ErrConnDone
		}
		return db.PingContext(ctx)
	}
}

// Pinger is the part of redis.Client a check needs.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

func NewRedisChecker(pinger Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if pinger == nil {
			return redis.ErrClosed
		}
		return pinger.Ping(ctx).Err()
	}
}

// NewHTTPChecker expects a 2xx answer from url. The bot probes the tracker API with it.
func NewHTTPChecker(client *http.Client, url string) CheckFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build health request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("call %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			return fmt.Errorf("%s returned %d", url, resp.StatusCode)
		}
		return nil
	}
}

// NewTelegramChecker passes once the bot completed its getMe handshake.
func NewTelegramChecker(bot *telebot.Bot) CheckFunc {
	return func(context.Context) error {
		if bot == nil || bot.Me == nil {
			return errTelegramOffline
		}
		return nil
	}
}
