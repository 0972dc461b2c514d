package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/client"
)

// Handler answers one update: a command, a button press or a line of
// conversation input.
type Handler func(c telebot.Context) error

// Middleware decorates a Handler.
type Middleware func(Handler) Handler

// Chain applies mws so that the first one sees the update first.
func Chain(h Handler, mws ...Middleware) Handler {
	if h == nil {
		return nil
	}
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// Clients returns the API client bound to the session of a chat.
type Clients func(chatID int64) *client.Client
