package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/blackjack-tracker/internal/domain"
)

// GameRepository defines persistence operations for recorded games.
type GameRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Game, error)
	// CreateTicket inserts games and applies walletDelta to the owner in one transaction.
	CreateTicket(ctx context.Context, userID int64, games []domain.Game, walletDelta int64) ([]domain.Game, int64, error)
	Delete(ctx context.Context, userID, gameID int64) error
}

type gameRepository struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// NewGameRepository creates a new SQL-backed game repository.
func NewGameRepository(db *sql.DB, dialect Dialect, log *slog.Logger) GameRepository {
	if log == nil {
		log = slog.Default()
	}

	return &gameRepository{
		db:      db,
		dialect: dialect,
		log:     log,
	}
}

// ListByUser returns the user's games, newest first.
func (r *gameRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Game, error) {
	const query = `
		SELECT id, user_id, ticket_id, number1, number2, number3, number4, dealer, prize, win, created_at
		FROM games
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), userID)
	if err != nil {
		r.log.Error("failed to list games", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select games by user: %w", err)
	}
	defer rows.Close()

	games := make([]domain.Game, 0)
	for rows.Next() {
		var (
			g         domain.Game
			createdAt string
		)
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.TicketID,
			&g.Number1,
			&g.Number2,
			&g.Number3,
			&g.Number4,
			&g.Dealer,
			&g.Prize,
			&g.Win,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if g.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			r.log.Error("unreadable game row", slog.Int64("game_id", g.ID), slog.Any("error", err))
			return nil, fmt.Errorf("scan game %d: %w", g.ID, err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate games: %w", err)
	}

	return games, nil
}

// CreateTicket inserts every game of a ticket and settles the wallet atomically.
func (r *gameRepository) CreateTicket(ctx context.Context, userID int64, games []domain.Game, walletDelta int64) ([]domain.Game, int64, error) {
	const query = `
		INSERT INTO games (user_id, ticket_id, number1, number2, number3, number4, dealer, prize, win, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin ticket transaction: %w", err)
	}
	defer rollback(tx, r.log)

	stmt, err := tx.PrepareContext(ctx, r.dialect.Rebind(query))
	if err != nil {
		return nil, 0, fmt.Errorf("prepare game insert: %w", err)
	}
	defer stmt.Close()

	created := make([]domain.Game, len(games))
	for i, g := range games {
		g.UserID = userID
		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now().UTC()
		}

		if err := stmt.QueryRowContext(
			ctx,
			g.UserID,
			g.TicketID,
			g.Number1,
			g.Number2,
			g.Number3,
			g.Number4,
			g.Dealer,
			g.Prize,
			g.Win,
			formatTimestamp(g.CreatedAt),
		).Scan(&g.ID); err != nil {
			r.log.Error("failed to insert game", slog.Int64("user_id", userID), slog.String("ticket_id", g.TicketID), slog.Any("error", err))
			return nil, 0, fmt.Errorf("insert game: %w", err)
		}

		// callers see the stored precision, as a later read would
		g.CreatedAt = g.CreatedAt.UTC().Truncate(time.Microsecond)
		created[i] = g
	}

	wallet, err := adjustWallet(ctx, tx, r.dialect, userID, walletDelta)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit ticket transaction: %w", err)
	}

	return created, wallet, nil
}

// Delete removes a game owned by userID. Games of other users are reported as not found.
func (r *gameRepository) Delete(ctx context.Context, userID, gameID int64) error {
	const query = `DELETE FROM games WHERE id = ? AND user_id = ?`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), gameID, userID)
	if err != nil {
		r.log.Error("failed to delete game", slog.Int64("user_id", userID), slog.Int64("game_id", gameID), slog.Any("error", err))
		return fmt.Errorf("delete game: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete game rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
