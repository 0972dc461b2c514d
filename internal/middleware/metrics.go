package middleware

import (
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	"github.com/Proton-105/blackjack-tracker/pkg/metrics"
)

// HTTPMetrics records request counts and latency labelled by chi route pattern.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, routePattern(r), status, time.Since(start))
	})
}

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(CommandName(c), status, time.Since(start))

		return err
	}
}

// CommandName is the metric label of an update: the slash command, the
// callback action before its first colon, or "text" for free input.
func CommandName(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		data := strings.TrimPrefix(cb.Data, "\f")
		if idx := strings.IndexAny(data, ":|"); idx > 0 {
			data = data[:idx]
		}
		return "cb:" + data
	}

	text := strings.TrimSpace(c.Text())
	if strings.HasPrefix(text, "/") {
		if idx := strings.IndexAny(text, " @"); idx > 0 {
			text = text[:idx]
		}
		return text
	}
	if text != "" {
		return "text"
	}

	return "unknown"
}
