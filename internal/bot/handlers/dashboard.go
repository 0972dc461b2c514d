package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/view"
)

// NewDashboardHandler shows the navbar, the totals and the newest month.
func NewDashboardHandler(clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		d := view.NewDashboard(clients(ChatID(c)))
		if err := d.Load(Context(c)); err != nil {
			log.Warn("dashboard load failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			if msg := failureText(err, ""); msg != "" {
				return c.Send(msg)
			}
		}
		return c.Send(d.Render(), keyboard.MainMenu(true))
	}
}
