// Package session persists the API token of each Telegram chat in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Proton-105/blackjack-tracker/internal/client"
)

const tokenKeyPattern = "session:token:%d"

// Store keeps one token per chat.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store. A zero ttl keeps tokens until logout.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// For returns the token store of one chat.
func (s *Store) For(chatID int64) client.TokenStore {
	return &chatTokens{store: s, chatID: chatID}
}

// Token returns the stored token or "" when the chat is logged out.
func (s *Store) Token(ctx context.Context, chatID int64) (string, error) {
	token, err := s.client.Get(ctx, tokenKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get session token: %w", err)
	}
	return token, nil
}

// SetToken replaces the token of the chat.
func (s *Store) SetToken(ctx context.Context, chatID int64, token string) error {
	if err := s.client.Set(ctx, tokenKey(chatID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	return nil
}

// ClearToken logs the chat out.
func (s *Store) ClearToken(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, tokenKey(chatID)).Err(); err != nil {
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}

type chatTokens struct {
	store  *Store
	chatID int64
}

func (c *chatTokens) Token(ctx context.Context) (string, error) {
	return c.store.Token(ctx, c.chatID)
}

func (c *chatTokens) SetToken(ctx context.Context, token string) error {
	return c.store.SetToken(ctx, c.chatID, token)
}

func (c *chatTokens) ClearToken(ctx context.Context) error {
	return c.store.ClearToken(ctx, c.chatID)
}

func tokenKey(chatID int64) string {
	return fmt.Sprintf(tokenKeyPattern, chatID)
}
