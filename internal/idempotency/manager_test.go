package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestManager_ExecuteOnce(t *testing.T) {
	client, _ := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	calls := 0
	op := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`[{"id":1}]`), nil
	}

	first, err := m.Execute(ctx, "k1", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := m.Execute(ctx, "k1", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.JSONEq(t, `[{"id":1}]`, string(second.Response))
	assert.Equal(t, 1, calls)
}

func TestManager_FailureIsNotStored(t *testing.T) {
	client, _ := setupTestRedis(t)
	m := NewManager(NewRedisStore(client, testLogger()), testLogger())
	ctx := context.Background()

	boom := errors.New("boom")
	_, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	res, err := m.Execute(ctx, "k2", time.Hour, func(context.Context) ([]byte, error) { return []byte(`{}`), nil })
	require.NoError(t, err)
	assert.False(t, res.FromCache)
}

func TestManager_InProgress(t *testing.T) {
	client, _ := setupTestRedis(t)
	store := NewRedisStore(client, testLogger())
	m := NewManager(store, testLogger())
	ctx := context.Background()

	claimed, err := store.Claim(ctx, "k3", time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = m.Execute(ctx, "k3", time.Hour, func(context.Context) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestManager_ExpiredClaimIsRetried(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, testLogger())
	m := NewManager(store, testLogger())
	ctx := context.Background()

	_, err := store.Claim(ctx, "k4", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	res, err := m.Execute(ctx, "k4", time.Hour, func(context.Context) ([]byte, error) { return []byte("ok"), nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Response))

	ttl := mr.TTL(keyPrefix + "k4")
	assert.Greater(t, ttl, time.Minute)
}

func TestRedisStore_UnreadableRecordIsDropped(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, testLogger())
	require.NoError(t, mr.Set(keyPrefix+"bad", "{"))

	rec, err := store.Load(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, mr.Exists(keyPrefix+"bad"))
}

func TestCleaner_Sweep(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client, testLogger())
	ctx := context.Background()

	require.NoError(t, store.Complete(ctx, "fresh", []byte("{}"), time.Hour))
	require.NoError(t, store.Complete(ctx, "long", []byte("{}"), 48*time.Hour))
	require.NoError(t, mr.Set(keyPrefix+"orphan", `{"status":"completed"}`))

	removed, err := NewCleaner(client, testLogger(), time.Minute, 25*time.Hour).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, mr.Exists(keyPrefix+"fresh"))
	assert.False(t, mr.Exists(keyPrefix+"long"))
	assert.False(t, mr.Exists(keyPrefix+"orphan"))
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("alice", "abc"), Key("alice", "abc"))
	assert.NotEqual(t, Key("alice", "abc"), Key("bob", "abc"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
	assert.Len(t, Key("x"), 36)
}
