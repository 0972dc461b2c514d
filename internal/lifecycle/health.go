package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Proton-105/blackjack-tracker/internal/health"
)

// ErrShuttingDown is reported by Readiness once shutdown has begun.
var ErrShuttingDown = errors.New("shutting down")

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) (map[string]string, error)
}

// Probes answers liveness unconditionally and readiness from the component checks.
type Probes struct {
	checker  *health.Checker
	draining atomic.Bool
	log      *slog.Logger
}

// NewProbes creates probes backed by checker. A nil checker is always ready.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports that the process is running.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness runs every component check.
func (p *Probes) Readiness(ctx context.Context) (map[string]string, error) {
	if p.draining.Load() {
		return nil, ErrShuttingDown
	}
	if p.checker == nil {
		return map[string]string{}, nil
	}

	results, healthy := p.checker.Check(ctx)
	if healthy {
		return results, nil
	}

	failed := make([]string, 0)
	for name, status := range results {
		if status != health.StatusOK {
			failed = append(failed, name)
		}
	}
	p.log.Warn("readiness probe failed", slog.String("components", strings.Join(failed, ",")))
	return results, errors.New("not ready: " + strings.Join(failed, ","))
}

// Drain makes Readiness fail so load balancers stop routing before shutdown.
func (p *Probes) Drain(context.Context) error {
	p.draining.Store(true)
	return nil
}
