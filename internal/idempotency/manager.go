package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// claimTTL bounds how long a crashed operation blocks its key.
const claimTTL = time.Minute

var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation performs the guarded work and returns the encoded response to store.
type Operation func(ctx context.Context) ([]byte, error)

type Result struct {
	Response  []byte
	FromCache bool
}

type Manager interface {
	// Execute runs fn once per key and replays its response afterwards.
	// A failed fn leaves nothing behind, so the key may be retried.
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	return &manager{store: store, log: log}
}

func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("idempotent operation is nil")
	}

	// Two attempts: a key that expires between Claim and Load is claimed again.
	for attempt := 0; attempt < 2; attempt++ {
		claimed, err := m.store.Claim(ctx, key, claimTTL)
		if err != nil {
			return nil, err
		}
		if claimed {
			return m.run(ctx, key, ttl, fn)
		}

		rec, err := m.store.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		switch {
		case rec == nil:
			continue
		case rec.Status == StatusCompleted:
			return &Result{Response: rec.Response, FromCache: true}, nil
		default:
			return nil, ErrRequestInProgress
		}
	}
	return nil, ErrRequestInProgress
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	response, err := fn(ctx)
	if err != nil {
		if abandonErr := m.store.Abandon(context.WithoutCancel(ctx), key); abandonErr != nil {
			m.log.Warn("idempotency claim left until expiry", slog.String("key", key), slog.Any("error", abandonErr))
		}
		return nil, err
	}

	if err := m.store.Complete(context.WithoutCancel(ctx), key, response, ttl); err != nil {
		m.log.Error("idempotency record not stored", slog.String("key", key), slog.Any("error", err))
	}
	return &Result{Response: response}, nil
}
