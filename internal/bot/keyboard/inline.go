package keyboard

import (
	"fmt"

	telebot "gopkg.in/telebot.v3"
)

// InlineButton is a button definition before its callback data is encoded.
type InlineButton struct {
	Text    string
	Action  string
	Payload string
}

// InlineKeyboardBuilder accumulates rows of buttons.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{}
}

// AddRow appends a row. Empty rows are skipped.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Build renders the rows. Callback data is written as plain "action:payload"
// so that the router can decode it without telebot's unique prefix.
func (b *InlineKeyboardBuilder) Build() (*telebot.ReplyMarkup, error) {
	inlineKeyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inlineKeyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			data, err := EncodeCallback(btn.Action, btn.Payload)
			if err != nil {
				return nil, fmt.Errorf("button %q: %w", btn.Text, err)
			}
			inlineKeyboard[i][j] = telebot.InlineButton{Text: btn.Text, Data: data}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inlineKeyboard}, nil
}
