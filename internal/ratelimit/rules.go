package ratelimit

import (
	"fmt"
	"slices"
	"time"

	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

// Rules are the configured budgets, parsed once.
type Rules struct {
	enabled bool
	exempt  []int64

	login, perChat       Budget
	loginErr, perChatErr error
}

func NewRules(cfg config.RateLimitConfig) *Rules {
	r := &Rules{enabled: cfg.Enabled, exempt: cfg.Whitelist}
	r.login, r.loginErr = parseBudget("login", cfg.Login)
	r.perChat, r.perChatErr = parseBudget("per_user", cfg.PerUser)
	return r
}

func (r *Rules) Enabled() bool {
	return r != nil && r.enabled
}

// Exempt reports whether a chat is whitelisted.
func (r *Rules) Exempt(chatID int64) bool {
	return slices.Contains(r.exempt, chatID)
}

// Login is the per-client budget of POST /token.
func (r *Rules) Login() (Budget, error) { return r.login, r.loginErr }

// PerChat is the budget of bot updates per chat.
func (r *Rules) PerChat() (Budget, error) { return r.perChat, r.perChatErr }

func parseBudget(name string, rule config.RateLimitRule) (Budget, error) {
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return Budget{}, fmt.Errorf("ratelimit.%s.window: %w", name, err)
	}
	if window <= 0 || rule.Limit <= 0 {
		return Budget{}, fmt.Errorf("ratelimit.%s: limit and window must be positive", name)
	}
	return Budget{Limit: rule.Limit, Window: window}, nil
}
