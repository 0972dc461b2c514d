package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/ratelimit"
)

// ChatRateLimit caps updates per chat. A rejected update gets the rate limit
// message instead of a handler; limiter failures let the update through.
func ChatRateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	if limiter == nil || !rules.Enabled() {
		return nil
	}
	budget, err := rules.PerChat()
	if err != nil {
		log.Error("chat rate limit disabled", slog.Any("error", err))
		return nil
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			chat := c.Chat()
			if chat == nil || rules.Exempt(chat.ID) {
				return next(c)
			}

			d, err := limiter.Allow(handlers.Context(c), ratelimit.Key("chat", strconv.FormatInt(chat.ID, 10)), budget)
			if err != nil {
				log.Warn("chat rate limit unavailable", slog.Int64("chat_id", chat.ID), slog.Any("error", err))
				return next(c)
			}
			if d.Allowed {
				return next(c)
			}

			log.Warn("chat rate limit exceeded", slog.Int64("chat_id", chat.ID))
			text := apperrors.NewRateLimitError(d.RetryAfter(time.Now())).UserMessage
			if c.Callback() != nil {
				return c.Respond(&telebot.CallbackResponse{Text: text})
			}
			return c.Send(text)
		}
	}
}

// LoginRateLimit caps requests per client IP. Rejections answer 429 with a
// Retry-After header and a {"detail"} body.
func LoginRateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	passThrough := func(next http.Handler) http.Handler { return next }
	if limiter == nil || !rules.Enabled() {
		return passThrough
	}
	budget, err := rules.Login()
	if err != nil {
		log.Error("login rate limit disabled", slog.Any("error", err))
		return passThrough
	}

	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			d, err := limiter.Allow(r.Context(), ratelimit.Key("login", ip), budget)
			if err != nil {
				log.Warn("login rate limit unavailable", slog.String("ip", ip), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			if !d.Allowed {
				tooManyRequests(w, d.RetryAfter(time.Now()))
				log.Warn("login rate limit exceeded", slog.String("ip", ip))
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

func tooManyRequests(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"detail": apperrors.NewRateLimitError(retryAfter).UserMessage,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

