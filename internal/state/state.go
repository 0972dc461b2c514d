package state

import "time"

// State is a step of a chat conversation.
type State string

const (
	StateIdle State = "idle"

	StateLoginUsername State = "login_username"
	StateLoginPassword State = "login_password"

	StateRegisterUsername State = "register_username"
	StateRegisterPassword State = "register_password"
	// StateRegisterConfirm holds only a bcrypt hash of the first password.
	StateRegisterConfirm State = "register_confirm"

	StateTicketPrice State = "ticket_price"
	// StateTicketGames collects one line of numbers per game.
	StateTicketGames State = "ticket_games"
	// StateTicketReview waits for submit, cancel or a corrected line.
	StateTicketReview State = "ticket_review"

	StateError State = "error"
)

// Values is the input a conversation has collected so far.
type Values map[string]string

// UserState is the stored conversation of one Telegram user.
type UserState struct {
	UserID       int64     `json:"user_id"`
	CurrentState State     `json:"state"`
	Data         Values    `json:"data,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Value returns the collected value of key, or "".
func (s *UserState) Value(key string) string {
	if s == nil {
		return ""
	}
	return s.Data[key]
}

// Idle reports whether the user is outside any conversation.
func (s *UserState) Idle() bool {
	return s == nil || s.CurrentState == "" || s.CurrentState == StateIdle
}

func idleState(userID int64) *UserState {
	return &UserState{UserID: userID, CurrentState: StateIdle, Data: Values{}}
}
