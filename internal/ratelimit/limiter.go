// Package ratelimit implements sliding-window request budgets for login
// attempts and bot chats.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Budget allows Limit requests in any Window.
type Budget struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one request against a budget. A rejected request
// does not consume the budget.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees up, at least 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(d.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter reports rejections through Decision.Allowed. An error means the
// backend could not decide.
type Limiter interface {
	Allow(ctx context.Context, key string, b Budget) (Decision, error)
}

// Key joins a limiter scope such as "login" with the subject being limited.
func Key(scope, subject string) string {
	return scope + ":" + subject
}

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}
