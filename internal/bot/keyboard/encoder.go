package keyboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// Callback actions. The payload after the separator is the argument.
const (
	ActionPrice         = "price"
	ActionTicketSubmit  = "tsubmit"
	ActionTicketCancel  = "tcancel"
	ActionHistory       = "hist"
	ActionHistoryMobile = "histm"
	ActionDelete        = "del"
	ActionNoop          = "noop"
)

// EncodeCallback joins an action and its payload into callback data.
func EncodeCallback(action, payload string) (string, error) {
	data := action
	if payload != "" {
		data = action + CallbackDataSeparator + payload
	}

	if len(data) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(data))
	}
	return data, nil
}

// DecodeCallback splits callback data at the first separator. A leading
// telebot "\f" marker is ignored.
func DecodeCallback(callbackData string) (action, payload string, err error) {
	callbackData = strings.TrimPrefix(callbackData, "\f")
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	idx := strings.Index(callbackData, CallbackDataSeparator)
	if idx == -1 {
		return callbackData, "", nil
	}

	return callbackData[:idx], callbackData[idx+len(CallbackDataSeparator):], nil
}

// ParseInt decodes a numeric payload such as a game id or a page.
func ParseInt(data string) (int64, error) {
	v, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse callback payload %q: %w", data, err)
	}
	return v, nil
}
