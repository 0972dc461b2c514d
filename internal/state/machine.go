package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrStateNotFound     = errors.New("conversation not found")
	// ErrStateLocked is returned while another update of the same user is
	// changing the conversation.
	ErrStateLocked = errors.New("conversation is busy, try again")
)

const (
	lockKeyPrefix = "bot:conversation:lock:"
	lockTTL       = 5 * time.Second
)

// releaseLock deletes the lock only while it still carries our token, so an
// expired lock taken over by another update is left alone.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder installs a hook that observes every validated
// transition. A nil recorder disables it.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		recorder = func(string, string) {}
	}
	transitionRecorder = recorder
}

// StateMachine drives the conversations of the bot.
type StateMachine interface {
	// Current returns the stored conversation, or an idle one.
	Current(ctx context.Context, userID int64) (*UserState, error)
	// SetState starts s unconditionally. Commands use it to enter a flow.
	SetState(ctx context.Context, userID int64, s State, data Values) error
	// TransitionTo moves to next if the flow allows it and replaces the data.
	TransitionTo(ctx context.Context, userID int64, next State, data Values) error
	ClearState(ctx context.Context, userID int64) error
	// Active lists every conversation in progress.
	Active(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	locks   *redis.Client
	log     *slog.Logger
}

// NewStateMachine builds a StateMachine over storage. Writes are serialised
// per user through a lock in locks; a nil client disables locking.
func NewStateMachine(storage Storage, log *slog.Logger, locks *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{storage: storage, locks: locks, log: log}
}

func (m *machine) Current(ctx context.Context, userID int64) (*UserState, error) {
	st, err := m.storage.Load(ctx, userID)
	if errors.Is(err, ErrStateNotFound) {
		return idleState(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (m *machine) Active(ctx context.Context) ([]*UserState, error) {
	all, err := m.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	active := all[:0]
	for _, st := range all {
		if !st.Idle() {
			active = append(active, st)
		}
	}
	return active, nil
}

func (m *machine) SetState(ctx context.Context, userID int64, s State, data Values) error {
	return m.withLock(ctx, userID, func() error {
		return m.save(ctx, userID, s, data)
	})
}

func (m *machine) TransitionTo(ctx context.Context, userID int64, next State, data Values) error {
	return m.withLock(ctx, userID, func() error {
		current, err := m.Current(ctx, userID)
		if err != nil {
			return err
		}

		from := current.CurrentState
		if !IsTransitionAllowed(from, next) {
			m.log.Warn("rejected conversation transition",
				slog.Int64("user_id", userID),
				slog.String("from", string(from)),
				slog.String("to", string(next)),
			)
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
		}

		if err := m.save(ctx, userID, next, data); err != nil {
			return err
		}
		transitionRecorder(string(from), string(next))
		return nil
	})
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.withLock(ctx, userID, func() error {
		return m.storage.Delete(ctx, userID)
	})
}

func (m *machine) save(ctx context.Context, userID int64, s State, data Values) error {
	if data == nil {
		data = Values{}
	}
	return m.storage.Save(ctx, &UserState{UserID: userID, CurrentState: s, Data: data})
}

func (m *machine) withLock(ctx context.Context, userID int64, fn func() error) error {
	if m.locks == nil {
		return fn()
	}

	key := fmt.Sprintf("%s%d", lockKeyPrefix, userID)
	token := uuid.NewString()

	ok, err := m.locks.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return fmt.Errorf("lock conversation %d: %w", userID, err)
	}
	if !ok {
		m.log.Debug("conversation lock busy", slog.Int64("user_id", userID))
		return ErrStateLocked
	}

	defer func() {
		// The update context may already be cancelled here.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, m.locks, []string{key}, token).Err(); err != nil {
			m.log.Error("failed to release conversation lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}()

	return fn()
}
