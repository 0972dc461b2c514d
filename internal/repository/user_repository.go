// Package repository implements SQL persistence for users and games.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Proton-105/blackjack-tracker/internal/domain"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	AdjustWallet(ctx context.Context, userID, delta int64) (int64, error)
}

type userRepository struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, dialect Dialect, log *slog.Logger) UserRepository {
	if log == nil {
		log = slog.Default()
	}

	return &userRepository{
		db:      db,
		dialect: dialect,
		log:     log,
	}
}

// FindByUsername retrieves a user by their unique username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
		SELECT id, username, password_hash, wallet, created_at
		FROM users
		WHERE username = ?
	`

	var (
		user      domain.User
		createdAt string
	)
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Wallet,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		r.log.Error("failed to fetch user by username", slog.String("username", username), slog.Any("error", err))
		return nil, fmt.Errorf("select user by username: %w", err)
	}

	created, err := parseTimestamp(createdAt)
	if err != nil {
		r.log.Error("unreadable user row", slog.String("username", username), slog.Any("error", err))
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = created
	return &user, nil
}

// Create persists a new user and fills in its generated id.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (username, password_hash, wallet, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if err := r.db.QueryRowContext(
		ctx,
		r.dialect.Rebind(query),
		user.Username,
		user.PasswordHash,
		user.Wallet,
		formatTimestamp(user.CreatedAt),
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}

		r.log.Error("failed to create user", slog.String("username", user.Username), slog.Any("error", err))
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// AdjustWallet adds delta to the user's wallet and returns the new balance.
func (r *userRepository) AdjustWallet(ctx context.Context, userID, delta int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin wallet transaction: %w", err)
	}
	defer rollback(tx, r.log)

	wallet, err := adjustWallet(ctx, tx, r.dialect, userID, delta)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit wallet transaction: %w", err)
	}

	return wallet, nil
}

func adjustWallet(ctx context.Context, tx *sql.Tx, dialect Dialect, userID, delta int64) (int64, error) {
	res, err := tx.ExecContext(ctx, dialect.Rebind(`UPDATE users SET wallet = wallet + ? WHERE id = ?`), delta, userID)
	if err != nil {
		return 0, fmt.Errorf("update wallet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, ErrNotFound
	}

	var wallet int64
	if err := tx.QueryRowContext(ctx, dialect.Rebind(`SELECT wallet FROM users WHERE id = ?`), userID).Scan(&wallet); err != nil {
		return 0, fmt.Errorf("select wallet: %w", err)
	}

	return wallet, nil
}

func rollback(tx *sql.Tx, log *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("rollback failed", slog.Any("error", err))
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(domain.TimestampLayout)
}

// parseTimestamp reads a stored created_at. RFC 3339 is accepted for rows
// written by other tools.
func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(domain.TimestampLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", value, err)
	}
	return t.UTC(), nil
}
