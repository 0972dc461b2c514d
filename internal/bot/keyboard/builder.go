package keyboard

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/domain"
)

// Builder creates the inline keyboards of the tracker conversations.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// PriceButtons offers the two ticket prices.
func (b *Builder) PriceButtons() *telebot.ReplyMarkup {
	row := make([]InlineButton, 0, 2)
	for _, price := range []int64{domain.PriceSingle, domain.PriceQuad} {
		games, _ := domain.GamesForPrice(price)
		row = append(row, InlineButton{
			Text:    fmt.Sprintf("%s Ft · %d game(s)", humanize.Comma(price), games),
			Action:  ActionPrice,
			Payload: strconv.FormatInt(price, 10),
		})
	}

	return b.build(NewInlineKeyboard().
		AddRow(row...).
		AddRow(InlineButton{Text: "Cancel ❌", Action: ActionTicketCancel}))
}

// ReviewButtons confirms or abandons a filled ticket.
func (b *Builder) ReviewButtons() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(
		InlineButton{Text: "Submit ✅", Action: ActionTicketSubmit},
		InlineButton{Text: "Cancel ❌", Action: ActionTicketCancel},
	))
}

// CancelButton abandons the ticket being filled.
func (b *Builder) CancelButton() *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(InlineButton{Text: "Cancel ❌", Action: ActionTicketCancel}))
}

// HistoryRow is the part of a history row a delete button needs.
type HistoryRow struct {
	ID    int64
	Label string
}

// HistoryButtons lays out one delete button per row, the month pager and a
// layout switch. mobile selects which layout the page is shown in.
func (b *Builder) HistoryButtons(rows []HistoryRow, page, totalPages int, headings []string, mobile bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()

	for _, r := range rows {
		kb.AddRow(InlineButton{
			Text:    "🗑 " + r.Label,
			Action:  ActionDelete,
			Payload: strconv.FormatInt(r.ID, 10),
		})
	}

	action, switchAction, switchText := ActionHistory, ActionHistoryMobile, "📱 Compact view"
	if mobile {
		action, switchAction, switchText = ActionHistoryMobile, ActionHistory, "🖥 Table view"
	}

	label := func(p int) string {
		if p >= 1 && p <= len(headings) {
			return headings[p-1]
		}
		return fmt.Sprintf("Page %d/%d", p, totalPages)
	}

	kb.AddRow(PaginationButtons(action, page, totalPages, label)...)
	kb.AddRow(InlineButton{Text: switchText, Action: switchAction, Payload: strconv.Itoa(page)})

	return b.build(kb)
}

func (b *Builder) build(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	markup, err := kb.Build()
	if err != nil {
		b.log.Error("failed to build inline keyboard", slog.Any("error", err))
		return &telebot.ReplyMarkup{}
	}
	return markup
}
