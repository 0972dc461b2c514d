// Package state keeps the per-user conversation of the Telegram frontend,
// such as a login in progress or a half filled ticket.
package state

import "context"

// Storage persists conversations.
type Storage interface {
	// Load returns ErrStateNotFound for users without a conversation.
	Load(ctx context.Context, userID int64) (*UserState, error)
	// Save stamps UpdatedAt and stores st.
	Save(ctx context.Context, st *UserState) error
	Delete(ctx context.Context, userID int64) error
	// List returns every stored conversation.
	List(ctx context.Context) ([]*UserState, error)
}
