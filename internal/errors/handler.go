package errors

import (
	"context"
	stdErrors "errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/blackjack-tracker/pkg/logger"
	"github.com/Proton-105/blackjack-tracker/pkg/metrics"
)

const codeUnknown = "unknown"

// Handler is the single place errors end up: it logs them, counts them and
// reports severe ones to Sentry.
type Handler struct {
	log    *slog.Logger
	report bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, report: sentryEnabled}
}

// Handle records err and returns the message to show the user and whether a
// retry may help.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	appErr := classify(err)
	code := appErr.Code
	if code == "" {
		code = codeUnknown
	}

	attrs := []slog.Attr{
		slog.String("code", code),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
		slog.String("error", err.Error()),
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}

	level := slog.LevelError
	if appErr.Severity == SeverityLow {
		level = slog.LevelWarn
	}
	h.log.LogAttrs(ctx, level, "request failed", attrs...)
	metrics.RecordError(code, string(appErr.Severity))

	if h.report && appErr.Severity.Reportable() {
		h.capture(ctx, err, code, appErr.Severity)
	}

	return UserMessage(appErr), appErr.Retryable
}

// classify returns the AppError inside err, or wraps foreign errors as
// high-severity failures with the generic user message.
func classify(err error) *AppError {
	var appErr *AppError
	if stdErrors.As(err, &appErr) && appErr != nil {
		return appErr
	}

	out := &AppError{Message: err.Error(), Severity: SeverityHigh, cause: err}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		out.Code = CodeExternalAPI
		out.Severity = SeverityMedium
		out.Retryable = true
	}
	return out
}

// Reportable reports whether errors of this severity go to Sentry.
func (s Severity) Reportable() bool {
	return s == SeverityHigh || s == SeverityCritical
}

func (h *Handler) capture(ctx context.Context, err error, code string, severity Severity) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", code)
		scope.SetTag("severity", string(severity))
		if id := logger.CorrelationIDFromContext(ctx); id != "" {
			scope.SetTag("correlation_id", id)
		}
		if severity == SeverityCritical {
			scope.SetLevel(sentry.LevelFatal)
		}
		hub.CaptureException(err)
	})
}
