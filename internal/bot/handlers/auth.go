package handlers

import (
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/auth"
	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/state"
	"github.com/Proton-105/blackjack-tracker/internal/view"
)

const (
	MsgPasswordMismatch  = "Oh no, passwords do not match! 😐"
	MsgRegistered        = "🎉 That's it! You can now /login."
	MsgRegisterFailed    = "Registration failed 🙁"
	MsgLoggedOut         = "You have been logged out."
	msgAskUsername       = "Username:"
	msgAskPassword       = "Password:"
	msgAskConfirm        = "Confirm password:"
	msgAlreadyLoggedIn   = "You are already logged in. Send /logout first."
	keyUsername          = "username"
	keyPasswordHash      = "password_hash"
	msgLoginTryAgain     = "Send /login to try again."
	msgRegisterTryAgain  = "Send /register to try again."
	msgPasswordIsDeleted = "(your password message was deleted)"
)

// NewLoginHandler starts the login conversation.
func NewLoginHandler(fsm state.StateMachine, clients Clients, log *slog.Logger) Handler {
	return startCredentialsFlow(fsm, clients, state.StateLoginUsername, "Login to Blackjack-Tracker", log)
}

// NewRegisterHandler starts the registration conversation.
func NewRegisterHandler(fsm state.StateMachine, clients Clients, log *slog.Logger) Handler {
	return startCredentialsFlow(fsm, clients, state.StateRegisterUsername, "Register for Blackjack-Tracker", log)
}

func startCredentialsFlow(fsm state.StateMachine, clients Clients, first state.State, title string, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		if clients(ChatID(c)).HasToken(ctx) {
			return c.Send(msgAlreadyLoggedIn)
		}

		if err := fsm.SetState(ctx, UserID(c), first, nil); err != nil {
			log.Error("failed to start credentials flow", slog.Int64("user_id", UserID(c)), slog.Any("error", err))
			return err
		}

		return c.Send(title+"\n\n"+msgAskUsername, keyboard.Remove())
	}
}

// LoginUsernameState stores the username and asks for the password.
func LoginUsernameState(fsm state.StateMachine) Handler {
	return askPasswordAfterUsername(fsm, state.StateLoginPassword)
}

// RegisterUsernameState stores the username and asks for the password.
func RegisterUsernameState(fsm state.StateMachine) Handler {
	return askPasswordAfterUsername(fsm, state.StateRegisterPassword)
}

func askPasswordAfterUsername(fsm state.StateMachine, next state.State) Handler {
	return func(c telebot.Context) error {
		username := strings.TrimSpace(c.Text())
		if username == "" {
			return c.Send(msgAskUsername)
		}

		if err := fsm.TransitionTo(Context(c), UserID(c), next, state.Values{keyUsername: username}); err != nil {
			return err
		}
		return c.Send(msgAskPassword)
	}
}

// LoginPasswordState logs in with the collected credentials. The password
// message is deleted from the chat.
func LoginPasswordState(fsm state.StateMachine, clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		userID := UserID(c)
		password := c.Text()
		deletePassword(c, log)

		st, err := fsm.Current(ctx, userID)
		if err != nil {
			return err
		}
		if err := fsm.ClearState(ctx, userID); err != nil {
			return err
		}

		api := clients(ChatID(c))
		if err := api.Login(ctx, st.Value(keyUsername), password); err != nil {
			log.Info("login rejected", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			return c.Send(failureText(err, MsgUnexpected)+"\n"+msgLoginTryAgain, keyboard.MainMenu(false))
		}

		d := view.NewDashboard(api)
		if err := d.Load(ctx); err != nil {
			log.Warn("dashboard load after login failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
		}
		return c.Send(d.Render(), keyboard.MainMenu(true))
	}
}

// RegisterPasswordState keeps a bcrypt hash of the password, never the
// password itself, and asks for confirmation.
func RegisterPasswordState(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		password := c.Text()
		deletePassword(c, log)

		st, err := fsm.Current(ctx, UserID(c))
		if err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Info("password not accepted for registration", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			if err := fsm.ClearState(ctx, UserID(c)); err != nil {
				return err
			}
			return c.Send(MsgRegisterFailed+"\n"+msgRegisterTryAgain, keyboard.MainMenu(false))
		}

		data := state.Values{
			keyUsername:     st.Value(keyUsername),
			keyPasswordHash: hash,
		}
		if err := fsm.TransitionTo(ctx, UserID(c), state.StateRegisterConfirm, data); err != nil {
			return err
		}
		return c.Send(msgPasswordIsDeleted + "\n" + msgAskConfirm)
	}
}

// RegisterConfirmState registers the account once both passwords match.
// A mismatch asks for the password again.
func RegisterConfirmState(fsm state.StateMachine, clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		userID := UserID(c)
		confirm := c.Text()
		deletePassword(c, log)

		st, err := fsm.Current(ctx, userID)
		if err != nil {
			return err
		}
		username := st.Value(keyUsername)

		if hash := st.Value(keyPasswordHash); hash == "" || !auth.CheckPassword(hash, confirm) {
			if err := fsm.TransitionTo(ctx, userID, state.StateRegisterPassword, state.Values{keyUsername: username}); err != nil {
				return err
			}
			return c.Send(MsgPasswordMismatch + "\n\n" + msgAskPassword)
		}

		if err := fsm.ClearState(ctx, userID); err != nil {
			return err
		}

		if err := clients(ChatID(c)).Register(ctx, username, confirm); err != nil {
			log.Info("registration rejected", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			return c.Send(failureText(err, MsgRegisterFailed)+"\n"+msgRegisterTryAgain, keyboard.MainMenu(false))
		}

		log.Info("account registered from chat", slog.Int64("chat_id", ChatID(c)))
		return c.Send(MsgRegistered, keyboard.MainMenu(false))
	}
}

// NewLogoutHandler forgets the session token of the chat.
func NewLogoutHandler(fsm state.StateMachine, clients Clients, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		if err := fsm.ClearState(ctx, UserID(c)); err != nil {
			log.Warn("failed to clear state on logout", slog.Int64("user_id", UserID(c)), slog.Any("error", err))
		}

		if err := clients(ChatID(c)).Logout(ctx); err != nil {
			return err
		}
		return c.Send(MsgLoggedOut, keyboard.MainMenu(false))
	}
}

func deletePassword(c telebot.Context, log *slog.Logger) {
	if c.Message() == nil {
		return
	}
	if err := c.Delete(); err != nil {
		log.Debug("failed to delete password message", slog.Any("error", err))
	}
}

