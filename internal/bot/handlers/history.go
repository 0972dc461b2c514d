package handlers

import (
	"fmt"
	"html"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/client"
	"github.com/Proton-105/blackjack-tracker/internal/view"
)

const (
	MsgNoGames       = "No games recorded yet. Use /ticket to add one."
	MsgHistoryFailed = "Failed to load games."
	MsgGameDeleted   = "Game deleted."
)

// NewHistoryHandler shows the newest month of the history as a table.
func NewHistoryHandler(clients Clients, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		h := view.NewHistory(clients(ChatID(c)))
		if err := h.Load(Context(c)); err != nil {
			log.Warn("history load failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			return c.Send(failureText(err, MsgHistoryFailed))
		}

		text, markup := historyPage(kb, h, 0, false)
		return c.Send(text, markup, telebot.ModeHTML)
	}
}

// HandleHistoryPage switches month or layout. mobile selects the compact cards.
func HandleHistoryPage(clients Clients, kb *keyboard.Builder, mobile bool, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		_, payload, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil {
			return err
		}
		page, err := keyboard.ParseInt(payload)
		if err != nil {
			return err
		}

		h := view.NewHistory(clients(ChatID(c)))
		if err := h.Load(Context(c)); err != nil {
			respond(c, log, failureText(err, MsgHistoryFailed))
			return nil
		}

		respond(c, log, "")
		text, markup := historyPage(kb, h, int(page), mobile)
		return editOrSend(c, log, text, markup)
	}
}

// HandleDelete removes the game of a del:<id> button and redraws the history.
func HandleDelete(clients Clients, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		ctx := Context(c)
		_, payload, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil {
			return err
		}
		id, err := keyboard.ParseInt(payload)
		if err != nil {
			return err
		}

		d := view.NewDashboard(clients(ChatID(c)))
		if err := d.History.Delete(ctx, id); err != nil {
			log.Info("game delete failed", slog.Int64("chat_id", ChatID(c)), slog.Int64("game_id", id), slog.Any("error", err))
			if client.IsUnauthorized(err) {
				d.History.Message = MsgSessionEnded
			}
			_ = c.Respond(&telebot.CallbackResponse{Text: d.History.Message, ShowAlert: true})
			if loadErr := d.History.Load(ctx); loadErr != nil {
				return nil
			}
		} else {
			if err := d.RefreshErr(); err != nil {
				log.Warn("refresh after delete failed", slog.Int64("chat_id", ChatID(c)), slog.Any("error", err))
			}
			respond(c, log, MsgGameDeleted)
		}

		text, markup := historyPage(kb, d.History, 0, false)
		return editOrSend(c, log, text, markup)
	}
}

// historyPage renders one month. page is one based; 0 selects the newest month.
// The text is HTML.
func historyPage(kb *keyboard.Builder, h *view.History, page int, mobile bool) (string, *telebot.ReplyMarkup) {
	sections := h.Sections()
	if len(sections) == 0 {
		return MsgNoGames, &telebot.ReplyMarkup{}
	}
	if page < 1 || page > len(sections) {
		page = len(sections)
	}
	section := sections[page-1]

	var text string
	if mobile {
		text = html.EscapeString(view.RenderMobile(section))
	} else {
		text = "<pre>" + html.EscapeString(view.RenderDesktop(section)) + "</pre>"
	}

	headings := make([]string, len(sections))
	for i, s := range sections {
		headings[i] = s.Heading
	}

	rows := make([]keyboard.HistoryRow, 0, len(section.Games))
	for _, r := range section.Rows() {
		rows = append(rows, keyboard.HistoryRow{
			ID:    r.ID,
			Label: fmt.Sprintf("%s %s vs %d %s", r.Date, r.Numbers, r.Dealer, r.Prize),
		})
	}

	return text, kb.HistoryButtons(rows, page, len(sections), headings, mobile)
}

func editOrSend(c telebot.Context, log *slog.Logger, text string, markup *telebot.ReplyMarkup) error {
	if c.Callback() != nil && c.Callback().Message != nil {
		err := c.Edit(text, markup, telebot.ModeHTML)
		if err == nil {
			return nil
		}
		log.Debug("history edit failed, sending a new message", slog.Any("error", err))
	}
	return c.Send(text, markup, telebot.ModeHTML)
}
