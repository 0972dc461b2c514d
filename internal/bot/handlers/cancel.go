package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/state"
)

const MsgNothingToCancel = "Nothing to cancel."

// cancelled names what /cancel abandons in each conversation.
var cancelled = map[state.State]string{
	state.StateLoginUsername:    "Login cancelled.",
	state.StateLoginPassword:    "Login cancelled.",
	state.StateRegisterUsername: "Registration cancelled.",
	state.StateRegisterPassword: "Registration cancelled.",
	state.StateRegisterConfirm:  "Registration cancelled.",
	state.StateTicketPrice:      MsgTicketDiscarded,
	state.StateTicketGames:      MsgTicketDiscarded,
	state.StateTicketReview:     MsgTicketDiscarded,
}

// NewCancelHandler leaves the current conversation. Collected input, such as
// a half filled ticket, is dropped.
func NewCancelHandler(fsm state.StateMachine, clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		menu := keyboard.MainMenu(clients(ChatID(c)).HasToken(ctx))

		st, err := fsm.Current(ctx, UserID(c))
		if err != nil {
			return err
		}
		text, ok := cancelled[st.CurrentState]
		if !ok {
			return c.Send(MsgNothingToCancel, menu)
		}

		if err := fsm.ClearState(ctx, UserID(c)); err != nil {
			return err
		}
		log.Info("conversation cancelled", slog.Int64("user_id", UserID(c)), slog.String("state", string(st.CurrentState)))
		return c.Send(text, menu)
	}
}
