// Package domain holds the records shared by the tracker service, its storage, and its clients.
package domain

import "time"

// User is a registered tracker account. The wallet is a signed running balance.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Wallet       int64
	CreatedAt    time.Time
}

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)
