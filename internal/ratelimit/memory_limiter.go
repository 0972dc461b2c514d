package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps a sliding log per key in process memory.
type MemoryLimiter struct {
	mu   sync.Mutex
	logs map[string][]time.Time
	now  func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{logs: make(map[string][]time.Time), now: time.Now}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, b Budget) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[key]
	start := 0
	for start < len(log) && log[start].Before(now.Add(-b.Window)) {
		start++
	}
	log = log[start:]

	allowed := len(log) < b.Limit
	if allowed {
		log = append(log, now)
	}
	m.logs[key] = log

	d := Decision{Allowed: allowed, Remaining: remaining(b.Limit, len(log)), ResetAt: now.Add(b.Window)}
	if len(log) > 0 {
		d.ResetAt = log[0].Add(b.Window)
	}
	return d, nil
}

// Prune forgets keys idle for longer than maxAge and returns how many went.
func (m *MemoryLimiter) Prune(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for key, log := range m.logs {
		if len(log) == 0 || log[len(log)-1].Before(cutoff) {
			delete(m.logs, key)
			pruned++
		}
	}
	return pruned
}

// RunPruner calls Prune every interval until ctx is cancelled.
func (m *MemoryLimiter) RunPruner(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Prune(maxAge)
		}
	}
}
