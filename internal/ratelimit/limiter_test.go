package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var minute5 = Budget{Limit: 5, Window: time.Minute}

func TestLimiters_CountDownRemaining(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiters := map[string]Limiter{
		"redis":  NewRedisLimiter(client, testLogger()),
		"memory": NewMemoryLimiter(),
	}

	for name, l := range limiters {
		l := l
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				d, err := l.Allow(ctx, Key("login", "10.0.0.1"), minute5)
				require.NoError(t, err)
				assert.True(t, d.Allowed)
				assert.Equal(t, 5-i, d.Remaining)
			}

			d, err := l.Allow(ctx, Key("login", "10.0.0.1"), minute5)
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Zero(t, d.Remaining)

			d, err = l.Allow(ctx, Key("login", "10.0.0.2"), minute5)
			require.NoError(t, err)
			assert.True(t, d.Allowed)
		})
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()
	budget := Budget{Limit: 2, Window: time.Second}

	base := time.Now()
	limiter.now = func() time.Time { return base }

	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "login:window", budget)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := limiter.Allow(ctx, "login:window", budget)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.RetryAfter(base))

	// Rejections are not recorded, so only the two admitted requests remain.
	members, err := mr.ZMembers(KeyPrefix + "login:window")
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Greater(t, mr.TTL(KeyPrefix+"login:window"), time.Duration(0))

	limiter.now = func() time.Time { return base.Add(1100 * time.Millisecond) }

	d, err = limiter.Allow(ctx, "login:window", budget)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAdaptiveLimiter_DegradesAndRecovers(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(), testLogger())
	ctx := context.Background()
	budget := Budget{Limit: 4, Window: time.Minute}

	d, err := limiter.Allow(ctx, "login:a", budget)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	mr.Close()

	// The local fallback halves the budget.
	for i := 0; i < 2; i++ {
		d, err = limiter.Allow(ctx, "login:a", budget)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err = limiter.Allow(ctx, "login:a", budget)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, limiter.isDegraded())

	require.NoError(t, mr.Restart())
	limiter.now = func() time.Time { return time.Now().Add(time.Minute) }

	d, err = limiter.Allow(ctx, "login:b", budget)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Remaining)
	assert.False(t, limiter.isDegraded())
}

func TestMemoryLimiter_Prune(t *testing.T) {
	m := NewMemoryLimiter()
	ctx := context.Background()

	_, err := m.Allow(ctx, "k", Budget{Limit: 1, Window: time.Minute})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Prune(time.Hour))

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 1, m.Prune(time.Hour))
}

func TestRules(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Enabled:   true,
		Whitelist: []int64{7},
		Login:     config.RateLimitRule{Limit: 10, Window: "1m"},
		PerUser:   config.RateLimitRule{Limit: 30, Window: "bogus"},
	})

	assert.True(t, rules.Enabled())
	assert.True(t, rules.Exempt(7))
	assert.False(t, rules.Exempt(8))

	login, err := rules.Login()
	require.NoError(t, err)
	assert.Equal(t, Budget{Limit: 10, Window: time.Minute}, login)

	_, err = rules.PerChat()
	assert.ErrorContains(t, err, "ratelimit.per_user.window")

	var disabled *Rules
	assert.False(t, disabled.Enabled())
}
