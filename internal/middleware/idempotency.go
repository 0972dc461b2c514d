package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
)

const callbackMemory = 10 * time.Minute

// CallbackOnce runs the handler of a button press at most once. Telegram
// redelivers a callback whose answer is slow, which would otherwise submit a
// ticket or delete a game twice. Repeats are only acknowledged.
func CallbackOnce(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			cb := c.Callback()
			if cb == nil {
				return next(c)
			}
			key, ok := callbackKey(cb)
			if !ok {
				return next(c)
			}

			res, err := manager.Execute(handlers.Context(c), key, callbackMemory, func(ctx context.Context) ([]byte, error) {
				return nil, next(c)
			})
			if errors.Is(err, idempotency.ErrRequestInProgress) || (err == nil && res.FromCache) {
				log.Debug("repeated callback acknowledged", slog.String("data", cb.Data))
				return c.Respond()
			}
			return err
		}
	}
}

func callbackKey(cb *telebot.Callback) (string, bool) {
	switch {
	case cb.ID != "":
		return idempotency.Key("callback", cb.ID), true
	case cb.Message != nil && cb.Message.Chat != nil:
		return idempotency.Key("callback",
			strconv.FormatInt(cb.Message.Chat.ID, 10),
			strconv.Itoa(cb.Message.ID),
			cb.Data,
		), true
	default:
		return "", false
	}
}
