package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/state"
	"github.com/Proton-105/blackjack-tracker/internal/view"
)

const (
	keyPrice  = "price"
	keyGroups = "groups"
	keyError  = "error"

	MsgTicketSaved     = "Ticket saved! ✅"
	MsgTicketDiscarded = "Ticket discarded."
	MsgTicketClosed    = "This ticket is no longer open. Send /ticket to start a new one."
	msgChoosePrice     = "Choose the ticket price:"
	msgGameFormat      = "Send six numbers: n1 n2 n3 n4 dealer prize"
	msgCorrectionHint  = "To fix a game send: <game#> n1 n2 n3 n4 dealer prize"
)

// NewTicketHandler opens a blank ticket and asks for its price.
func NewTicketHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if err := fsm.SetState(Context(c), UserID(c), state.StateTicketPrice, nil); err != nil {
			log.Error("failed to open ticket", slog.Int64("user_id", UserID(c)), slog.Any("error", err))
			return err
		}
		return c.Send(msgChoosePrice, kb.PriceButtons())
	}
}

// HandlePrice sizes the ticket for the chosen price and asks for the first game.
func HandlePrice(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		st, err := fsm.Current(ctx, UserID(c))
		if err != nil {
			return err
		}
		if st.CurrentState != state.StateTicketPrice && st.CurrentState != state.StateTicketGames {
			respond(c, log, MsgTicketClosed)
			return nil
		}

		_, payload, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil {
			return err
		}
		price, err := keyboard.ParseInt(payload)
		if err != nil {
			return err
		}

		form := view.NewTicketForm()
		if err := form.SelectPrice(price); err != nil {
			respond(c, log, err.Error())
			return nil
		}

		if err := fsm.TransitionTo(ctx, UserID(c), state.StateTicketGames, saveForm(form)); err != nil {
			return err
		}

		respond(c, log, "")
		return c.Send(gamePrompt(form))
	}
}

// TicketGamesState fills the next blank game from one line of numbers.
func TicketGamesState(fsm state.StateMachine, kb *keyboard.Builder) Handler {
	return func(c telebot.Context) error {
		ctx := Context(c)
		st, err := fsm.Current(ctx, UserID(c))
		if err != nil {
			return err
		}

		form, err := loadForm(st)
		if err != nil {
			return err
		}

		idx := form.NextBlank()
		if idx < 0 {
			idx = len(form.Groups) - 1
		}
		if err := form.SetGroup(idx, c.Text()); err != nil {
			return c.Send(err.Error() + "\n" + msgGameFormat)
		}

		if form.NextBlank() >= 0 {
			if err := fsm.TransitionTo(ctx, UserID(c), state.StateTicketGames, saveForm(form)); err != nil {
				return err
			}
			return c.Send(gamePrompt(form), kb.CancelButton())
		}

		if err := fsm.TransitionTo(ctx, UserID(c), state.StateTicketReview, saveForm(form)); err != nil {
			return err
		}
		return c.Send(form.Render(), kb.ReviewButtons())
	}
}

// TicketReviewState corrects one game: "<game#> n1 n2 n3 n4 dealer prize".
func TicketReviewState(fsm state.StateMachine, kb *keyboard.Builder) Handler {
	return func(c telebot.Context) error {
		ctx := Context(c)
		st, err := fsm.Current(ctx, UserID(c))
		if err != nil {
			return err
		}

		form, err := loadForm(st)
		if err != nil {
			return err
		}

		game, line, err := parseCorrection(c.Text())
		if err != nil {
			return c.Send(msgCorrectionHint, kb.ReviewButtons())
		}
		if err := form.SetGroup(game-1, line); err != nil {
			return c.Send(err.Error()+"\n"+msgCorrectionHint, kb.ReviewButtons())
		}
		form.Error = ""

		if err := fsm.TransitionTo(ctx, UserID(c), state.StateTicketReview, saveForm(form)); err != nil {
			return err
		}
		return c.Send(form.Render(), kb.ReviewButtons())
	}
}

// HandleTicketSubmit sends the reviewed ticket in one call. On failure the
// ticket stays in review with the server message.
func HandleTicketSubmit(fsm state.StateMachine, clients Clients, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		userID := UserID(c)

		st, err := fsm.Current(ctx, userID)
		if err != nil {
			return err
		}
		if st.CurrentState != state.StateTicketReview {
			respond(c, log, MsgTicketClosed)
			return nil
		}

		api := clients(ChatID(c))
		d := view.NewDashboard(api)
		if err := restoreForm(d.Form, st); err != nil {
			return err
		}

		if err := d.Form.Submit(ctx, api); err != nil {
			log.Info("ticket rejected", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			d.Form.Error = failureText(err, d.Form.Error)
			if err := fsm.TransitionTo(ctx, userID, state.StateTicketReview, saveForm(d.Form)); err != nil {
				return err
			}
			respond(c, log, "")
			return c.Send(d.Form.Render()+"\n\n"+msgCorrectionHint, kb.ReviewButtons())
		}

		if err := fsm.ClearState(ctx, userID); err != nil {
			log.Warn("failed to close ticket state", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		if err := d.RefreshErr(); err != nil {
			log.Warn("dashboard refresh after ticket failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
		}

		respond(c, log, MsgTicketSaved)
		return c.Send(MsgTicketSaved+"\n\n"+d.Render(), keyboard.MainMenu(true))
	}
}

// HandleTicketCancel discards the ticket being filled.
func HandleTicketCancel(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if err := fsm.ClearState(Context(c), UserID(c)); err != nil {
			return err
		}
		respond(c, log, MsgTicketDiscarded)
		return c.Send(MsgTicketDiscarded, keyboard.MainMenu(true))
	}
}

func gamePrompt(form *view.TicketForm) string {
	idx := form.NextBlank()
	return fmt.Sprintf("Game %d of %d.\n%s", idx+1, len(form.Groups), msgGameFormat)
}

func parseCorrection(text string) (int, string, error) {
	fields := strings.Fields(text)
	if len(fields) != len(view.FieldNames)+1 {
		return 0, "", errors.New("correction needs a game number and six values")
	}

	game, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("parse game number: %w", err)
	}
	return game, strings.Join(fields[1:], " "), nil
}

// saveForm flattens the form into conversation values. Groups are stored one
// line each, blank groups as empty lines.
func saveForm(form *view.TicketForm) state.Values {
	lines := make([]string, len(form.Groups))
	for i, g := range form.Groups {
		if !g.Blank() {
			lines[i] = strings.Join(g[:], " ")
		}
	}

	return state.Values{
		keyPrice:  strconv.FormatInt(form.Price, 10),
		keyGroups: strings.Join(lines, "\n"),
		keyError:  form.Error,
	}
}

func loadForm(st *state.UserState) (*view.TicketForm, error) {
	form := view.NewTicketForm()
	if err := restoreForm(form, st); err != nil {
		return nil, err
	}
	return form, nil
}

func restoreForm(form *view.TicketForm, st *state.UserState) error {
	price, err := strconv.ParseInt(st.Value(keyPrice), 10, 64)
	if err != nil {
		return fmt.Errorf("restore ticket price: %w", err)
	}
	if err := form.SelectPrice(price); err != nil {
		return fmt.Errorf("restore ticket: %w", err)
	}

	for i, line := range strings.Split(st.Value(keyGroups), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := form.SetGroup(i, line); err != nil {
			return fmt.Errorf("restore game %d: %w", i+1, err)
		}
	}

	form.Error = st.Value(keyError)
	return nil
}
