package bot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	"github.com/Proton-105/blackjack-tracker/internal/client"
	errors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/middleware"
	"github.com/Proton-105/blackjack-tracker/internal/state"
	"github.com/Proton-105/blackjack-tracker/pkg/logger"
)

const msgPanic = "⚠️ Something went wrong. Please try again later."

// ReplyOnError is the outermost middleware: every handler error becomes a
// chat message, so errors never reach telebot.
func ReplyOnError(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			text := replyText(handlers.Context(c), errHandler, err)
			if c.Callback() != nil {
				_ = c.Respond(&telebot.CallbackResponse{Text: text})
			}
			return c.Send(text)
		}
	}
}

func replyText(ctx context.Context, errHandler *errors.Handler, err error) string {
	switch {
	case stdErrors.Is(err, client.ErrUnauthenticated):
		return handlers.MsgLoginRequired
	case client.IsUnauthorized(err):
		return handlers.MsgSessionEnded
	case stdErrors.Is(err, state.ErrStateLocked), stdErrors.Is(err, state.ErrInvalidTransition):
		err = errors.NewStateError(err.Error())
	}

	if errHandler == nil {
		return errors.UserMessage(err)
	}
	if text, _ := errHandler.Handle(ctx, err); text != "" {
		return text
	}
	return handlers.MsgUnexpected
}

// Recover turns a handler panic into a critical error for ReplyOnError.
func Recover(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				log.Error("handler panicked",
					slog.Int64("user_id", handlers.UserID(c)),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = &errors.AppError{
					Code:        errors.CodeState,
					Message:     fmt.Sprintf("panic: %v", r),
					UserMessage: msgPanic,
					Severity:    errors.SeverityCritical,
				}
			}()
			return next(c)
		}
	}
}

// Trace gives the update a correlation id and logs its outcome.
func Trace(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			id := uuid.NewString()
			handlers.WithContext(c, logger.WithCorrelationID(handlers.Context(c), id))

			updateLog := log.With(
				slog.Int64("user_id", handlers.UserID(c)),
				slog.String("action", middleware.CommandName(c)),
				slog.String("correlation_id", id),
			)

			start := time.Now()
			err := next(c)
			if err != nil {
				updateLog.Warn("update failed", slog.Duration("duration", time.Since(start)), slog.Any("error", err))
				return err
			}
			updateLog.Info("update handled", slog.Duration("duration", time.Since(start)))
			return nil
		}
	}
}

// withTimeout bounds the work of one update.
func withTimeout(timeout time.Duration) handlers.Middleware {
	if timeout <= 0 {
		return nil
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			ctx, cancel := context.WithTimeout(handlers.Context(c), timeout)
			defer cancel()

			handlers.WithContext(c, ctx)
			return next(c)
		}
	}
}
