package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		markup, err := keyboard.NewInlineKeyboard().
			AddRow(
				keyboard.InlineButton{Text: "Prev", Action: "hist", Payload: "1"},
				keyboard.InlineButton{Text: "Next", Action: "hist", Payload: "2"},
			).
			AddRow().
			AddRow(keyboard.InlineButton{Text: "Submit", Action: "tsubmit"}).
			Build()
		require.NoError(t, err)
		require.NotNil(t, markup)

		require.Len(t, markup.InlineKeyboard, 2)
		assert.Len(t, markup.InlineKeyboard[0], 2)
		assert.Len(t, markup.InlineKeyboard[1], 1)
		assert.Equal(t, "hist:2", markup.InlineKeyboard[0][1].Data)
		assert.Equal(t, "tsubmit", markup.InlineKeyboard[1][0].Data)
		assert.Empty(t, markup.InlineKeyboard[0][0].Unique, "callback data carries the action")
	})

	t.Run("callback data overflow", func(t *testing.T) {
		_, err := keyboard.NewInlineKeyboard().
			AddRow(keyboard.InlineButton{
				Text:    "Too big",
				Action:  "overflow",
				Payload: strings.Repeat("x", keyboard.CallbackDataLimitBytes),
			}).
			Build()
		assert.Error(t, err)
	})
}
