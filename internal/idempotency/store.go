// Package idempotency makes a mutating operation run at most once per key
// and replays its stored response for repeated requests.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"

	keyPrefix = "idempotency:"
)

// Record is what a key holds: a claim while the operation runs, then the
// encoded response.
type Record struct {
	Status    Status    `json:"status"`
	Response  []byte    `json:"response,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps one record per key.
type Store interface {
	// Claim creates a pending record unless the key exists.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Load returns nil when the key does not exist.
	Load(ctx context.Context, key string) (*Record, error)
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Abandon drops a claim so the key can be retried.
	Abandon(ctx context.Context, key string) error
}

type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, log: log}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	raw, err := encode(&Record{Status: StatusPending})
	if err != nil {
		return false, err
	}
	ok, err := s.client.SetNX(ctx, keyPrefix+key, raw, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load idempotency record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.log.Warn("dropping unreadable idempotency record", slog.String("key", key), slog.Any("error", err))
		return nil, s.Abandon(ctx, key)
	}
	return &rec, nil
}

func (s *RedisStore) Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	raw, err := encode(&Record{Status: StatusCompleted, Response: response})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	return nil
}

func (s *RedisStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("abandon idempotency key: %w", err)
	}
	return nil
}

func encode(rec *Record) ([]byte, error) {
	rec.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	return raw, nil
}
