package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
)

func TestPaginationButtons(t *testing.T) {
	testCases := []struct {
		name      string
		page      int
		total     int
		wantTexts []string
		wantData  []string
	}{
		{
			name:      "first page",
			page:      1,
			total:     5,
			wantTexts: []string{"Page 1/5", "Page 2/5 ▶️"},
			wantData:  []string{"noop", "hist:2"},
		},
		{
			name:      "middle page",
			page:      3,
			total:     5,
			wantTexts: []string{"◀️ Page 2/5", "Page 3/5", "Page 4/5 ▶️"},
			wantData:  []string{"hist:2", "noop", "hist:4"},
		},
		{
			name:      "last page",
			page:      5,
			total:     5,
			wantTexts: []string{"◀️ Page 4/5", "Page 5/5"},
			wantData:  []string{"hist:4", "noop"},
		},
		{
			name:      "page out of range is clamped",
			page:      9,
			total:     1,
			wantTexts: []string{"Page 1/1"},
			wantData:  []string{"noop"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buttons := keyboard.PaginationButtons(keyboard.ActionHistory, tc.page, tc.total, nil)
			require.Len(t, buttons, len(tc.wantTexts))

			for i := range tc.wantTexts {
				assert.Equal(t, tc.wantTexts[i], buttons[i].Text)
				data, err := keyboard.EncodeCallback(buttons[i].Action, buttons[i].Payload)
				require.NoError(t, err)
				assert.Equal(t, tc.wantData[i], data)
			}
		})
	}
}

func TestHistoryButtons(t *testing.T) {
	b := keyboard.NewBuilder(nil)
	markup := b.HistoryButtons(
		[]keyboard.HistoryRow{{ID: 11, Label: "2024-01-05 +1,000"}, {ID: 12, Label: "2024-01-20 300"}},
		1, 2, []string{"January 2024", "February 2024"}, false,
	)

	require.Len(t, markup.InlineKeyboard, 4)
	assert.Equal(t, "del:11", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "del:12", markup.InlineKeyboard[1][0].Data)
	assert.Equal(t, "January 2024", markup.InlineKeyboard[2][0].Text)
	assert.Equal(t, "hist:2", markup.InlineKeyboard[2][1].Data)
	assert.Equal(t, "histm:1", markup.InlineKeyboard[3][0].Data)
}

func TestPriceButtons(t *testing.T) {
	markup := keyboard.NewBuilder(nil).PriceButtons()

	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "price:300", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "300 Ft · 1 game(s)", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "price:500", markup.InlineKeyboard[0][1].Data)
	assert.Equal(t, "tcancel", markup.InlineKeyboard[1][0].Data)
}
