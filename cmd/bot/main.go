package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/blackjack-tracker/internal/bot"
	"github.com/Proton-105/blackjack-tracker/internal/client"
	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/health"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
	"github.com/Proton-105/blackjack-tracker/internal/lifecycle"
	"github.com/Proton-105/blackjack-tracker/internal/middleware"
	"github.com/Proton-105/blackjack-tracker/internal/ratelimit"
	"github.com/Proton-105/blackjack-tracker/internal/session"
	"github.com/Proton-105/blackjack-tracker/internal/state"
	"github.com/Proton-105/blackjack-tracker/pkg/config"
	"github.com/Proton-105/blackjack-tracker/pkg/graceful"
	"github.com/Proton-105/blackjack-tracker/pkg/logger"
	"github.com/Proton-105/blackjack-tracker/pkg/metrics"
	redispkg "github.com/Proton-105/blackjack-tracker/pkg/redis"
)

var release = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("tracker bot stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := new(slog.LevelVar)
	level.Set(logger.ParseLevel(cfg.Logger.Level))
	log := logger.NewWithLevel(*cfg, level).With(slog.String("component", "bot"))
	slog.SetDefault(log)

	config.Watch(v, log, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
	})

	flushSentry, err := logger.InitSentry(cfg.Sentry, cfg.AppEnv, release)
	if err != nil {
		log.Warn("sentry disabled", slog.Any("error", err))
	}
	defer flushSentry()

	log.Info("starting tracker bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("api", cfg.API.BaseURL),
	)

	rdb, err := redispkg.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	shutdown := lifecycle.NewShutdown(log)

	storage := state.NewRedisStorage(rdb.Raw(), cfg.Bot.StateTTL, log)
	fsm := state.NewStateMachine(storage, log, rdb.Raw())
	state.RegisterTransitionRecorder(metrics.RecordStateTransition)
	prometheus.MustRegister(metrics.NewConversationCollector(fsm, log))

	api := client.New(cfg.API.BaseURL, nil,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(log),
		client.WithCircuitBreaker(apperrors.NewCircuitBreaker("tracker-api", apperrors.BreakerSettings{})),
	)

	memoryLimiter := ratelimit.NewMemoryLimiter()
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Raw(), log), memoryLimiter, log)

	b, err := bot.New(*cfg, log, bot.Deps{
		FSM:         fsm,
		Sessions:    session.NewStore(rdb.Raw(), cfg.Bot.SessionTTL),
		API:         api,
		Idempotency: idempotency.NewManager(idempotency.NewRedisStore(rdb.Raw(), log), log),
		RateLimit:   middleware.ChatRateLimit(limiter, ratelimit.NewRules(cfg.RateLimit), log),
	})
	if err != nil {
		_ = rdb.Close()
		return err
	}

	go state.NewCleaner(storage, log, cfg.Bot.StateTTL, 10*time.Minute).Run(ctx)
	go memoryLimiter.RunPruner(ctx, time.Minute, 10*time.Minute)
	go idempotency.NewCleaner(rdb.Raw(), log, time.Hour, cfg.Cache.IdempotencyTTL).Run(ctx)

	checker := health.NewChecker(log)
	checker.AddCheck("redis", health.NewRedisChecker(rdb.Raw()))
	checker.AddCheck("tracker_api", health.NewHTTPChecker(&http.Client{Timeout: cfg.API.Timeout}, cfg.API.BaseURL+"/healthz"))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	probes := lifecycle.NewProbes(checker, log)

	srv := graceful.NewServer(log, &http.Server{
		Addr:              ":" + cfg.Bot.MetricsPort,
		Handler:           opsRouter(probes),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	go b.Start()

	shutdown.Register(lifecycle.PhaseDrain, "readiness", probes.Drain)
	shutdown.Register(lifecycle.PhaseStop, "telegram", func(context.Context) error {
		b.Stop()
		return nil
	})
	shutdown.Add(lifecycle.CloserHook("redis", rdb))

	serveErr := srv.ListenAndServe(ctx)
	if serveErr == nil {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Warn("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("tracker bot stopped")
	return serveErr
}

// opsRouter serves the probes and Prometheus metrics of the bot process.
func opsRouter(probes lifecycle.HealthChecker) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := probes.Liveness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := probes.Readiness(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
