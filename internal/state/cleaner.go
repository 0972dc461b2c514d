package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner drops conversations that were left without an update for longer
// than ttl, such as a ticket abandoned half filled.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Cleaner{storage: storage, log: log, ttl: ttl, interval: interval, now: time.Now}
}

// Run sweeps every interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.log.Error("conversation sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep deletes the stale conversations once and returns how many went.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	all, err := c.storage.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for _, st := range all {
		if st.UpdatedAt.After(cutoff) {
			continue
		}
		if err := c.storage.Delete(ctx, st.UserID); err != nil {
			c.log.Warn("failed to drop stale conversation", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		c.log.Info("dropped stale conversations", slog.Int("count", removed))
	}
	return removed, nil
}
