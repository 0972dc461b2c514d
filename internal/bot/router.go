package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	"github.com/Proton-105/blackjack-tracker/internal/bot/keyboard"
	"github.com/Proton-105/blackjack-tracker/internal/state"
)

type updateKind int

const (
	kindText updateKind = iota
	kindCommand
	kindCallback
)

func kindOf(c telebot.Context) updateKind {
	if c.Callback() != nil {
		return kindCallback
	}
	if strings.HasPrefix(strings.TrimSpace(c.Text()), "/") {
		return kindCommand
	}
	return kindText
}

// Router sends every update through the shared middleware chain to one of
// three tables: slash commands, button actions, or the conversation the
// sender is in. Unmatched commands, and text outside a conversation, go to
// the fallback handler; unmatched button presses are only acknowledged.
type Router struct {
	mu            sync.RWMutex
	commands      map[string]handlers.Handler
	actions       map[string]handlers.Handler
	conversations *Conversations
	fallback      handlers.Handler
	chain         []handlers.Middleware
	log           *slog.Logger
}

// NewRouter builds an empty Router. Conversation input is looked up in conversations.
func NewRouter(conversations *Conversations, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:      make(map[string]handlers.Handler),
		actions:       make(map[string]handlers.Handler),
		conversations: conversations,
		log:           log,
	}
}

// Use appends middlewares to the chain every update goes through.
func (r *Router) Use(mws ...handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chain = append(r.chain, mws...)
}

// Fallback handles commands and text nothing else claimed.
func (r *Router) Fallback(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// With returns a registrar whose routes are additionally wrapped by mws,
// for example a session guard.
func (r *Router) With(mws ...handlers.Middleware) *Routes {
	return &Routes{router: r, mws: mws}
}

// Command registers a slash command such as "/ticket".
func (r *Router) Command(cmd string, h handlers.Handler) { r.With().Command(cmd, h) }

// Action registers the handler of a callback action.
func (r *Router) Action(action string, h handlers.Handler) { r.With().Action(action, h) }

// State registers the handler of conversation input in state s.
func (r *Router) State(s state.State, h handlers.Handler) { r.With().State(s, h) }

// Routes registers handlers behind a fixed set of route middlewares.
type Routes struct {
	router *Router
	mws    []handlers.Middleware
}

func (g *Routes) Command(cmd string, h handlers.Handler) {
	g.router.mu.Lock()
	defer g.router.mu.Unlock()
	g.router.commands[cmd] = handlers.Chain(h, g.mws...)
}

func (g *Routes) Action(action string, h handlers.Handler) {
	g.router.mu.Lock()
	defer g.router.mu.Unlock()
	g.router.actions[action] = handlers.Chain(h, g.mws...)
}

func (g *Routes) State(s state.State, h handlers.Handler) {
	g.router.conversations.Register(s, handlers.Chain(h, g.mws...))
}

// Route handles one update. Handler errors are returned after the chain has
// seen them; with ReplyOnError installed that is always nil.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	h, err := r.match(c)
	if err != nil {
		r.log.Warn("failed to resolve update", slog.Int64("user_id", handlers.UserID(c)), slog.Any("error", err))
		h = func(telebot.Context) error { return err }
	}
	if h == nil {
		return nil
	}

	return handlers.Chain(h, r.snapshot()...)(c)
}

func (r *Router) match(c telebot.Context) (handlers.Handler, error) {
	switch kindOf(c) {
	case kindCallback:
		if h := r.action(c.Callback().Data); h != nil {
			return h, nil
		}
		r.log.Info("no handler for callback", slog.String("data", c.Callback().Data))
		return func(c telebot.Context) error { return c.Respond() }, nil

	case kindCommand:
		// Unknown commands never reach a conversation, where they would be
		// taken as a password or a game line.
		r.mu.RLock()
		defer r.mu.RUnlock()
		if h := r.commands[commandOf(strings.TrimSpace(c.Text()))]; h != nil {
			return h, nil
		}
		return r.fallback, nil
	}

	if r.conversations != nil && c.Sender() != nil {
		_, h, err := r.conversations.Lookup(handlers.Context(c), handlers.UserID(c))
		if err != nil || h != nil {
			return h, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback, nil
}

func (r *Router) action(data string) handlers.Handler {
	action, _, err := keyboard.DecodeCallback(data)
	if err != nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[action]
}

func (r *Router) snapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]handlers.Middleware(nil), r.chain...)
}

// commandOf strips arguments and a "@botname" suffix from a command message.
func commandOf(text string) string {
	if idx := strings.IndexAny(text, " \n"); idx > 0 {
		text = text[:idx]
	}
	if idx := strings.Index(text, "@"); idx > 0 {
		text = text[:idx]
	}
	return text
}
