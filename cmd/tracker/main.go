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

	"github.com/Proton-105/blackjack-tracker/internal/auth"
	"github.com/Proton-105/blackjack-tracker/internal/database"
	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/health"
	"github.com/Proton-105/blackjack-tracker/internal/httpapi"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
	"github.com/Proton-105/blackjack-tracker/internal/lifecycle"
	"github.com/Proton-105/blackjack-tracker/internal/ratelimit"
	"github.com/Proton-105/blackjack-tracker/internal/repository"
	"github.com/Proton-105/blackjack-tracker/internal/tracker"
	"github.com/Proton-105/blackjack-tracker/internal/walletcache"
	"github.com/Proton-105/blackjack-tracker/pkg/config"
	"github.com/Proton-105/blackjack-tracker/pkg/graceful"
	"github.com/Proton-105/blackjack-tracker/pkg/logger"
	redispkg "github.com/Proton-105/blackjack-tracker/pkg/redis"
)

var release = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("tracker api stopped with error", slog.Any("error", err))
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
	log := logger.NewWithLevel(*cfg, level)
	slog.SetDefault(log)

	config.Watch(v, log, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
	})

	flushSentry, err := logger.InitSentry(cfg.Sentry, cfg.AppEnv, release)
	if err != nil {
		log.Warn("sentry disabled", slog.Any("error", err))
	}
	defer flushSentry()

	log.Info("starting tracker api",
		slog.String("env", cfg.AppEnv),
		slog.String("port", cfg.Server.Port),
		slog.String("db_driver", cfg.Database.Driver),
	)

	shutdown := lifecycle.NewShutdown(log)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db, cfg.Database.Driver, log); err != nil {
		_ = db.Close()
		return err
	}

	rdb, err := redispkg.New(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return err
	}

	dialect := repository.DialectSQLite
	if cfg.Database.Driver == database.DriverPostgres {
		dialect = repository.DialectPostgres
	}

	svc := tracker.NewService(
		repository.NewUserRepository(db, dialect, log),
		repository.NewGameRepository(db, dialect, log),
		auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		walletcache.NewCache(rdb.Raw(), cfg.Cache.WalletTTL),
		log,
	)

	memoryLimiter := ratelimit.NewMemoryLimiter()
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Raw(), log), memoryLimiter, log)

	checker := health.NewChecker(log)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rdb.Raw()))
	probes := lifecycle.NewProbes(checker, log)

	router := httpapi.NewRouter(svc, httpapi.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		LoginLimiter:   limiter,
		RateRules:      ratelimit.NewRules(cfg.RateLimit),
		Idempotency:    idempotency.NewManager(idempotency.NewRedisStore(rdb.Raw(), log), log),
		IdempotencyTTL: cfg.Cache.IdempotencyTTL,
		Probes:         probes,
		ErrorHandler:   apperrors.NewHandler(log, cfg.Sentry.Enabled),
	}, log)

	go memoryLimiter.RunPruner(ctx, time.Minute, 10*time.Minute)
	go idempotency.NewCleaner(rdb.Raw(), log, time.Hour, cfg.Cache.IdempotencyTTL).Run(ctx)

	srv := graceful.NewServer(log, &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, cfg.Server.ShutdownTimeout)

	shutdown.Register(lifecycle.PhaseDrain, "readiness", probes.Drain)
	shutdown.Add(lifecycle.CloserHook("redis", rdb))
	shutdown.Add(lifecycle.CloserHook("database", db))

	serveErr := srv.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Warn("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("tracker api stopped")
	return serveErr
}
