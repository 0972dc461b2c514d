package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	conversationKeyPrefix = "bot:conversation:"
	defaultStateTTL       = time.Hour
	scanBatch             = 100
)

// RedisStorage keeps one JSON document per user. Every Save restarts the TTL,
// so a conversation nobody touches expires on its own.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisStorage(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &RedisStorage{client: client, ttl: ttl, log: log}
}

func conversationKey(userID int64) string {
	return fmt.Sprintf("%s%d", conversationKeyPrefix, userID)
}

func (s *RedisStorage) Load(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, conversationKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %d: %w", userID, err)
	}

	st, err := decodeState(raw)
	if err != nil {
		return nil, fmt.Errorf("load conversation %d: %w", userID, err)
	}
	return st, nil
}

func (s *RedisStorage) Save(ctx context.Context, st *UserState) error {
	st.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := s.client.Set(ctx, conversationKey(st.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation %d: %w", st.UserID, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, conversationKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete conversation %d: %w", userID, err)
	}
	return nil
}

// List scans the conversation keys and fetches each batch with one MGET.
// Documents that fail to decode are skipped.
func (s *RedisStorage) List(ctx context.Context) ([]*UserState, error) {
	var out []*UserState

	iter := s.client.Scan(ctx, 0, conversationKeyPrefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		values, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("fetch conversations: %w", err)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			st, err := decodeState([]byte(raw))
			if err != nil {
				s.log.Warn("skipping undecodable conversation", slog.String("key", batch[i]), slog.Any("error", err))
				continue
			}
			out = append(out, st)
		}
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan conversations: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return out, nil
}

func decodeState(raw []byte) (*UserState, error) {
	var st UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	if st.Data == nil {
		st.Data = Values{}
	}
	return &st, nil
}
