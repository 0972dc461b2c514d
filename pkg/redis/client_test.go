package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

func TestNew_InstrumentsCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := New(ctx, config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	before := testutil.ToFloat64(commands.WithLabelValues("set"))

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	value, err := client.Get(ctx, "k").Result()
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	assert.Equal(t, before+1, testutil.ToFloat64(commands.WithLabelValues("set")))
}

func TestNew_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), config.RedisConfig{Addr: addr, MinRetryBackoff: time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis at "+addr)
}

func TestNew_WaitsForLateServer(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.StartAddr("127.0.0.1:0"))
	addr := mr.Addr()
	mr.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = mr.StartAddr(addr)
	}()
	t.Cleanup(mr.Close)

	client, err := New(context.Background(), config.RedisConfig{Addr: addr, MinRetryBackoff: 50 * time.Millisecond})
	require.NoError(t, err)
	_ = client.Close()
}
