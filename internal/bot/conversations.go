package bot

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Proton-105/blackjack-tracker/internal/bot/handlers"
	"github.com/Proton-105/blackjack-tracker/internal/state"
)

// Conversations maps a conversation state to the handler of the next line the
// user types, for example the password after the username during /login.
type Conversations struct {
	fsm state.StateMachine
	log *slog.Logger

	mu    sync.RWMutex
	steps map[state.State]handlers.Handler
}

func NewConversations(fsm state.StateMachine, log *slog.Logger) *Conversations {
	if log == nil {
		log = slog.Default()
	}

	return &Conversations{
		fsm:   fsm,
		log:   log,
		steps: make(map[state.State]handlers.Handler),
	}
}

// Register sets the handler of input received in state s.
func (cv *Conversations) Register(s state.State, h handlers.Handler) {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	cv.steps[s] = h
}

// Lookup returns the state of userID and its handler. The handler is nil for
// idle users and for states that take no typed input.
func (cv *Conversations) Lookup(ctx context.Context, userID int64) (state.State, handlers.Handler, error) {
	st, err := cv.fsm.Current(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	cv.mu.RLock()
	h := cv.steps[st.CurrentState]
	cv.mu.RUnlock()

	if h == nil && st.CurrentState != state.StateIdle {
		cv.log.Debug("state takes no input", slog.String("state", string(st.CurrentState)), slog.Int64("user_id", userID))
	}
	return st.CurrentState, h, nil
}
