// Package walletcache caches wallet balances in Redis between ticket submissions.
//
// Every invalidation bumps a per-user generation. A reader that missed the
// cache notes the generation before it reads the database and fills the cache
// only if no write happened in between.
package walletcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// generationTTL outlives any read-fill window by far; a generation that
// expired mid-read would let one stale fill through.
const generationTTL = 24 * time.Hour

var fillIfUnchanged = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

var bump = redis.NewScript(`
redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// Cache provides Redis-backed caching for wallet balances. A nil Cache or a
// Cache without a client is a valid no-op cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a wallet cache backed by the provided Redis client.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get fetches a cached balance. ok is false on a cache miss.
func (c *Cache) Get(ctx context.Context, username string) (wallet int64, ok bool, err error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}

	wallet, err = c.client.Get(ctx, cacheKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get cached wallet: %w", err)
	}

	return wallet, true, nil
}

// Set stores the balance for the configured TTL.
func (c *Cache) Set(ctx context.Context, username string, wallet int64) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(username), wallet, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached wallet: %w", err)
	}

	return nil
}

// Generation returns the write generation of username. Pass it to Fill.
func (c *Cache) Generation(ctx context.Context, username string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}

	gen, err := c.client.Get(ctx, generationKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get wallet generation: %w", err)
	}
	return gen, nil
}

// Fill caches a balance read from the database after Generation returned gen.
// It stores nothing and reports false when the wallet was invalidated since.
func (c *Cache) Fill(ctx context.Context, username string, wallet, gen int64) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}

	keys := []string{cacheKey(username), generationKey(username)}
	stored, err := fillIfUnchanged.Run(ctx, c.client, keys, gen, wallet, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("fill cached wallet: %w", err)
	}
	return stored == 1, nil
}

// Invalidate removes the cached balance and starts a new generation, so
// fills prepared before the call are dropped.
func (c *Cache) Invalidate(ctx context.Context, username string) error {
	if c == nil || c.client == nil {
		return nil
	}

	keys := []string{cacheKey(username), generationKey(username)}
	if err := bump.Run(ctx, c.client, keys, generationTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("invalidate cached wallet: %w", err)
	}
	return nil
}

func cacheKey(username string) string {
	return fmt.Sprintf("wallet:%s", username)
}

func generationKey(username string) string {
	return fmt.Sprintf("wallet:%s:gen", username)
}
