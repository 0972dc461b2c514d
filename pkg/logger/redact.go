package logger

import (
	"log/slog"
	"strings"
)

const redacted = "***"

var secretKeys = map[string]bool{
	"password":      true,
	"password_hash": true,
	"token":         true,
	"secret":        true,
	"authorization": true,
}

// Redact is a slog ReplaceAttr func that hides credentials. A key matches
// when it is, or ends in "_" plus, one of the secret names, so
// "access_token" is hidden but "token_type" is not.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}

	key := strings.ToLower(a.Key)
	if secretKeys[key] {
		return slog.String(a.Key, redacted)
	}
	if i := strings.LastIndexByte(key, '_'); i >= 0 && secretKeys[key[i+1:]] {
		return slog.String(a.Key, redacted)
	}
	return a
}
