package redis

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"
)

var (
	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "redis",
		Name:      "commands_total",
		Help:      "Redis commands by name.",
	}, []string{"command"})

	commandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blackjack",
		Subsystem: "redis",
		Name:      "command_errors_total",
		Help:      "Failed Redis commands by name. A nil reply is not a failure.",
	}, []string{"command"})

	commandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "blackjack",
		Subsystem: "redis",
		Name:      "command_duration_seconds",
		Help:      "Redis command latency.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"command"})

	poolStatsOnce sync.Once
)

// registerPoolStats exports the pool counters of the first client built.
func registerPoolStats(rdb *goredis.Client) {
	poolStatsOnce.Do(func() {
		gauge := func(name, help string, read func(*goredis.PoolStats) uint32) {
			promauto.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "blackjack",
				Subsystem: "redis",
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(read(rdb.PoolStats())) })
		}
		gauge("pool_total_conns", "Connections in the pool.", func(s *goredis.PoolStats) uint32 { return s.TotalConns })
		gauge("pool_idle_conns", "Idle connections in the pool.", func(s *goredis.PoolStats) uint32 { return s.IdleConns })
		gauge("pool_timeouts", "Times a caller waited for a connection past PoolTimeout.", func(s *goredis.PoolStats) uint32 { return s.Timeouts })
	})
}

// metricsHook records per-command counters and latency for every client call.
type metricsHook struct{}

var _ goredis.Hook = metricsHook{}

func (metricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (metricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		observe(cmd.Name(), time.Since(start), err)
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		observe("pipeline", time.Since(start), err)
		return err
	}
}

func observe(command string, elapsed time.Duration, err error) {
	commands.WithLabelValues(command).Inc()
	commandLatency.WithLabelValues(command).Observe(elapsed.Seconds())
	if err != nil && !errors.Is(err, goredis.Nil) {
		commandErrors.WithLabelValues(command).Inc()
	}
}
