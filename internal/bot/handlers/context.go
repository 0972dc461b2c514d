package handlers

import (
	"context"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/client"
)

const contextKey = "request_context"

// Message texts shared by several handlers.
const (
	MsgLoginRequired = "Please /login or /register first."
	MsgSessionEnded  = "Your session has expired. Please /login again."
	MsgUnexpected    = "An unexpected error occurred."
)

// WithContext attaches ctx to the update so that handlers share its values,
// such as the correlation id.
func WithContext(c telebot.Context, ctx context.Context) {
	c.Set(contextKey, ctx)
}

// Context returns the context attached by WithContext, or context.Background.
func Context(c telebot.Context) context.Context {
	if c != nil {
		if ctx, ok := c.Get(contextKey).(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// ChatID is the session key of the update.
func ChatID(c telebot.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

// UserID is the conversation state key of the update.
func UserID(c telebot.Context) int64 {
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return ChatID(c)
}

// failureText turns an API failure into the text shown to the user.
func failureText(err error, fallback string) string {
	if client.IsUnauthorized(err) {
		return MsgSessionEnded
	}
	if detail := client.Detail(err); detail != "" {
		return detail
	}
	return fallback
}

// respond acknowledges a callback query. Errors are only logged since the
// spinner times out on its own.
func respond(c telebot.Context, log *slog.Logger, text string) {
	if c.Callback() == nil {
		return
	}
	if err := c.Respond(&telebot.CallbackResponse{Text: text}); err != nil {
		log.Debug("failed to answer callback", slog.Any("error", err))
	}
}
