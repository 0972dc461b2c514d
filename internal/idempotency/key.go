package idempotency

import (
	"strings"

	"github.com/google/uuid"
)

var keySpace = uuid.MustParse("6f1c2a8e-58a4-4f0e-9a53-5b6f2d1e7c40")

// Key derives a stable key from parts, for example the caller, the route and
// the client supplied Idempotency-Key header.
func Key(parts ...string) string {
	return uuid.NewSHA1(keySpace, []byte(strings.Join(parts, "\x1f"))).String()
}
