package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/view"
)

const msgWelcome = "🃏 Welcome to Blackjack-Tracker!\nRecord your tickets and follow your wallet month by month."

// NewStartHandler greets the user with the navbar of their session.
func NewStartHandler(clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		nav := view.NewNavbar(clients(ChatID(c)))
		if err := nav.Refresh(ctx); err != nil {
			log.Warn("navbar refresh failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
		}

		return c.Send(msgWelcome+"\n\n"+nav.Render(), keyboard.MainMenu(!nav.Anonymous()))
	}
}
