// Package httpapi exposes the tracker service over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
	"github.com/Proton-105/blackjack-tracker/internal/lifecycle"
	"github.com/Proton-105/blackjack-tracker/internal/middleware"
	"github.com/Proton-105/blackjack-tracker/internal/ratelimit"
	"github.com/Proton-105/blackjack-tracker/internal/tracker"
	"github.com/Proton-105/blackjack-tracker/pkg/logger"
)

const defaultIdempotencyTTL = 24 * time.Hour

// Options carries the optional collaborators of the router. Nil fields
// switch the matching feature off.
type Options struct {
	AllowedOrigins []string
	// TrustedProxies lists the peers whose X-Forwarded-For and X-Real-IP
	// headers name the client. Empty means the socket peer is the client.
	TrustedProxies []string
	LoginLimiter   ratelimit.Limiter
	RateRules      *ratelimit.Rules
	Idempotency    idempotency.Manager
	IdempotencyTTL time.Duration
	Probes         lifecycle.HealthChecker
	ErrorHandler   *apperrors.Handler
}

type api struct {
	svc     *tracker.Service
	idem    idempotency.Manager
	idemTTL time.Duration
	probes  lifecycle.HealthChecker
	errs    *apperrors.Handler
	log     *slog.Logger
}

// NewRouter builds the chi router serving the tracker API.
func NewRouter(svc *tracker.Service, opts Options, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if opts.ErrorHandler == nil {
		opts.ErrorHandler = apperrors.NewHandler(log, false)
	}
	if opts.Probes == nil {
		opts.Probes = lifecycle.NewProbes(nil, log)
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}

	a := &api{
		svc:     svc,
		idem:    opts.Idempotency,
		idemTTL: opts.IdempotencyTTL,
		probes:  opts.Probes,
		errs:    opts.ErrorHandler,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.TrustedRealIP(middleware.TrustedProxiesOrNone(opts.TrustedProxies, log)))
	r.Use(logger.Middleware)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.HTTPMetrics)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", logger.CorrelationHeader},
		ExposedHeaders:   []string{logger.CorrelationHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", a.healthz)
	r.Get("/readyz", a.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", a.register)
	r.With(middleware.LoginRateLimit(opts.LoginLimiter, opts.RateRules, log)).Post("/token", a.token)

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/me", a.me)
		r.Get("/wallet", a.wallet)
		r.Get("/games", a.listGames)
		r.Post("/games", a.addGames)
		r.Delete("/games", a.deleteGame)
		r.Post("/update_wallet", a.updateWallet)
	})

	return r
}
