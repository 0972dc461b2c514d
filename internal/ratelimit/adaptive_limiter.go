package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limit decisions by backend and result.",
	}, []string{"backend", "result"})

	degraded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "blackjack",
		Subsystem: "ratelimit",
		Name:      "degraded",
		Help:      "1 while budgets are kept in process memory because Redis failed.",
	})
)

const defaultCooldown = 15 * time.Second

// AdaptiveLimiter uses the shared primary limiter and switches to the local
// fallback for a cooldown after the primary fails. While degraded every
// budget is halved, since each process counts on its own.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	cooldown time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	degradedUntil time.Time
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		cooldown: defaultCooldown,
		log:      log,
		now:      time.Now,
	}
}

func (a *AdaptiveLimiter) Allow(ctx context.Context, key string, b Budget) (Decision, error) {
	if !a.isDegraded() {
		d, err := a.primary.Allow(ctx, key, b)
		if err == nil {
			decisions.WithLabelValues("redis", resultLabel(d.Allowed)).Inc()
			return d, nil
		}
		a.degrade(err)
	}

	halved := b
	halved.Limit = max(b.Limit/2, 1)

	d, err := a.fallback.Allow(ctx, key, halved)
	if err == nil {
		decisions.WithLabelValues("memory", resultLabel(d.Allowed)).Inc()
	}
	return d, err
}

func (a *AdaptiveLimiter) isDegraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.degradedUntil.IsZero() {
		return false
	}
	if a.now().Before(a.degradedUntil) {
		return true
	}

	a.degradedUntil = time.Time{}
	degraded.Set(0)
	a.log.Info("retrying shared rate limiter")
	return false
}

func (a *AdaptiveLimiter) degrade(cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.degradedUntil = a.now().Add(a.cooldown)
	degraded.Set(1)
	a.log.Warn("shared rate limiter failed, using local budgets",
		slog.Duration("cooldown", a.cooldown),
		slog.Any("error", cause),
	)
}

func resultLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "rejected"
}
