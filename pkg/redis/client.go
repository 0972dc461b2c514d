// Package redis builds the shared go-redis client: sessions, conversations,
// caches, rate limits and idempotency records all live in one instance.
package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

const connectAttempts = 3

// Client is the instrumented go-redis client.
type Client struct {
	*redis.Client
}

// New connects to Redis. The first ping is retried a few times so that a
// server starting alongside the process does not fail the boot.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(options(cfg))
	rdb.AddHook(metricsHook{})
	registerPoolStats(rdb)

	backoff := cfg.MinRetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	err := rdb.Ping(ctx).Err()
	for attempt := 1; err != nil && attempt < connectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		err = rdb.Ping(ctx).Err()
	}
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Client{rdb}, nil
}

func options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.IdleTimeout,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
}

// Raw returns the go-redis client, or nil for a nil Client.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}
