package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cleaner unlinks records that lost their expiry or carry one longer than
// maxTTL, for example after the configured TTL was shortened.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	maxTTL   time.Duration
}

func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxTTL time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{client: client, log: log, interval: interval, maxTTL: maxTTL}
}

func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.Sweep(ctx); err != nil {
				c.log.Error("idempotency sweep failed", slog.Any("error", err))
			} else if n > 0 {
				c.log.Info("idempotency records unlinked", slog.Int("count", n))
			}
		}
	}
}

// Sweep checks every record once. TTLs are read one pipeline per scan page.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 200).Iterator()

	page := make([]string, 0, 200)
	sweepPage := func() error {
		if len(page) == 0 {
			return nil
		}
		defer func() { page = page[:0] }()

		ttls := make([]*redis.DurationCmd, len(page))
		_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
			for i, key := range page {
				ttls[i] = p.TTL(ctx, key)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("read idempotency ttls: %w", err)
		}

		var stale []string
		for i, cmd := range ttls {
			// -1 is a key without expiry.
			if ttl := cmd.Val(); ttl == -1 || ttl > c.maxTTL {
				stale = append(stale, page[i])
			}
		}
		if len(stale) == 0 {
			return nil
		}
		n, err := c.client.Unlink(ctx, stale...).Result()
		if err != nil {
			return fmt.Errorf("unlink idempotency records: %w", err)
		}
		removed += int(n)
		return nil
	}

	for iter.Next(ctx) {
		page = append(page, iter.Val())
		if len(page) == cap(page) {
			if err := sweepPage(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan idempotency records: %w", err)
	}
	return removed, sweepPage()
}
