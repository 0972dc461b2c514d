package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// MainMenu builds the reply keyboard of slash commands. The anonymous menu
// offers login and registration only.
func MainMenu(loggedIn bool) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}

	if !loggedIn {
		markup.Reply(
			markup.Row(markup.Text("/login"), markup.Text("/register")),
		)
		return markup
	}

	markup.Reply(
		markup.Row(markup.Text("/dashboard"), markup.Text("/ticket")),
		markup.Row(markup.Text("/history"), markup.Text("/wallet")),
		markup.Row(markup.Text("/logout")),
	)
	return markup
}

// Remove hides the reply keyboard, e.g. while a password is typed.
func Remove() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}
