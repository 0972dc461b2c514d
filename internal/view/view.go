// Package view holds the presentation state of the tracker frontend: the
// session guard, the navbar, the ticket form, the history table and the
// dashboard composing them. Views render to plain text; the bot decides how
// to deliver it.
package view

import (
	"context"

	"github.com/dustin/go-humanize"
)

// Tone is the visual emphasis of a value.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
	ToneInfo    Tone = "info"
)

// Marker is the glyph shown in front of a toned value.
func (t Tone) Marker() string {
	switch t {
	case ToneSuccess:
		return "🟢"
	case ToneError:
		return "🔴"
	case ToneInfo:
		return "🔵"
	default:
		return "⚪"
	}
}

// MsgUnexpected is shown when a failure carries no server detail.
const MsgUnexpected = "An unexpected error occurred."

// UserSource reports the user of the current session.
type UserSource interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// Guard renders child when a user is logged in. Otherwise it calls redirect
// and renders nothing.
func Guard(ctx context.Context, user UserSource, child func() string, redirect func()) string {
	if _, ok := user.CurrentUser(ctx); !ok {
		redirect()
		return ""
	}
	return child()
}

func formatAmount(v int64) string {
	return humanize.Comma(v)
}
