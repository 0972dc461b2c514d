package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every limiter key in Redis.
const KeyPrefix = "ratelimit:"

// slidingWindow trims the log, records the request if it fits and returns
// {allowed, used, reset_at_ms}. The key expires one window after its last write.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", "(" .. (now - window))

local used = redis.call("ZCARD", KEYS[1])
local allowed = 0
if used < limit then
	redis.call("ZADD", KEYS[1], now, ARGV[4])
	used = used + 1
	allowed = 1
end
redis.call("PEXPIRE", KEYS[1], window)

local reset = now + window
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end
return {allowed, used, reset}
`)

// RedisLimiter shares budgets between processes. Each key is a sorted set of
// request ids scored by arrival time in milliseconds.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{client: client, log: log, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, b Budget) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("rate limiter has no redis client")
	}

	now := l.now().UnixMilli()
	reply, err := slidingWindow.Run(ctx, l.client, []string{KeyPrefix + key},
		now, b.Window.Milliseconds(), b.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(reply) != 3 {
		return Decision{}, fmt.Errorf("rate limit %s: unexpected reply %v", key, reply)
	}

	return Decision{
		Allowed:   reply[0] == 1,
		Remaining: remaining(b.Limit, int(reply[1])),
		ResetAt:   time.UnixMilli(reply[2]),
	}, nil
}
