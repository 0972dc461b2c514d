package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/view"
)

// RequireSession runs the handler only for chats with a stored token.
// Other chats get the login prompt instead.
func RequireSession(clients Clients) Middleware {
	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			var err error
			view.Guard(Context(c), clients(ChatID(c)),
				func() string {
					err = next(c)
					return ""
				},
				func() {
					if c.Callback() != nil {
						_ = c.Respond(&telebot.CallbackResponse{Text: MsgLoginRequired})
					}
					err = c.Send(MsgLoginRequired, keyboard.MainMenu(false))
				},
			)
			return err
		}
	}
}
