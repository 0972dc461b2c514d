package keyboard

import (
	"fmt"
	"strconv"
)

// PaginationButtons returns up to three buttons (prev, current page, next)
// sharing the action. Pages are one based; the current page button is a no-op.
func PaginationButtons(action string, page, totalPages int, label func(page int) string) []InlineButton {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if label == nil {
		label = func(p int) string { return fmt.Sprintf("Page %d/%d", p, totalPages) }
	}

	buttons := make([]InlineButton, 0, 3)

	if page > 1 {
		buttons = append(buttons, InlineButton{
			Text:    "◀️ " + label(page-1),
			Action:  action,
			Payload: strconv.Itoa(page - 1),
		})
	}

	buttons = append(buttons, InlineButton{
		Text:   label(page),
		Action: ActionNoop,
	})

	if page < totalPages {
		buttons = append(buttons, InlineButton{
			Text:    label(page+1) + " ▶️",
			Action:  action,
			Payload: strconv.Itoa(page + 1),
		})
	}

	return buttons
}
