// Package tracker implements the account, wallet and game rules of the tracker API.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Proton-105/blackjack-tracker/internal/auth"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/repository"
	"github.com/Proton-105/blackjack-tracker/internal/walletcache"
	"github.com/Proton-105/blackjack-tracker/pkg/metrics"
)

const (
	MsgUserExists       = "User already exists with this username!"
	MsgUsernameTooShort = "Username must be at least 3 characters long!"
	MsgPasswordTooShort = "Password must be at least 6 characters long!"
	MsgInvalidLogin     = "Invalid credentials!"
	MsgInvalidToken     = "Invalid token"
	MsgUserNotFound     = "User not found"
	MsgInvalidGameData  = "Invalid game data"
	MsgNumberRange      = "Numbers must be between 1 and 21"
	MsgPrizeTooLow      = "Prize must be at least 300"
	MsgGameNotFound     = "Game not found"
)

// Service provides the business operations behind the HTTP API.
type Service struct {
	users  repository.UserRepository
	games  repository.GameRepository
	tokens *auth.TokenIssuer
	cache  *walletcache.Cache
	log    *slog.Logger
}

// NewService constructs a new Service instance. cache may be nil.
func NewService(
	users repository.UserRepository,
	games repository.GameRepository,
	tokens *auth.TokenIssuer,
	cache *walletcache.Cache,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		users:  users,
		games:  games,
		tokens: tokens,
		cache:  cache,
		log:    log,
	}
}

// Register creates an account with an empty wallet.
func (s *Service) Register(ctx context.Context, username, password string) (err error) {
	defer func() { metrics.RecordAuth("register", err == nil) }()

	_, err = s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return apperrors.NewConflictError(MsgUserExists)
	case !errors.Is(err, repository.ErrNotFound):
		s.logError("register.find", username, err)
		return apperrors.NewDatabaseError(err)
	}

	if err := validateCredentials(username, password); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	user := &domain.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewConflictError(MsgUserExists)
		}
		s.logError("register.create", username, err)
		return apperrors.NewDatabaseError(err)
	}

	s.log.Info("user registered", slog.Int64("user_id", user.ID), slog.String("username", username))
	return nil
}

// Login checks the credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (token string, err error) {
	defer func() { metrics.RecordAuth("login", err == nil) }()

	if err := validateCredentials(username, password); err != nil {
		return "", err
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.NewValidationError(MsgInvalidLogin)
		}
		s.logError("login.find", username, err)
		return "", apperrors.NewDatabaseError(err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", apperrors.NewValidationError(MsgInvalidLogin)
	}

	token, err = s.tokens.Issue(user.Username)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	return token, nil
}

// Authenticate resolves a bearer token to its username. It does not touch storage.
func (s *Service) Authenticate(token string) (string, error) {
	username, err := s.tokens.Verify(token)
	if err != nil {
		return "", apperrors.NewAuthError(MsgInvalidToken)
	}
	return username, nil
}

// Me returns the username if the account still exists.
func (s *Service) Me(ctx context.Context, username string) (string, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// Wallet returns the balance, preferring the Redis cache. A miss is filled
// only when no ticket or adjustment was committed during the database read.
func (s *Service) Wallet(ctx context.Context, username string) (int64, error) {
	if wallet, ok, err := s.cache.Get(ctx, username); err != nil {
		s.log.Warn("wallet cache read failed", slog.String("username", username), slog.Any("error", err))
	} else if ok {
		return wallet, nil
	}

	gen, genErr := s.cache.Generation(ctx, username)

	user, err := s.lookup(ctx, username)
	if err != nil {
		return 0, err
	}

	if genErr != nil {
		s.log.Warn("wallet cache fill skipped", slog.String("username", username), slog.Any("error", genErr))
		return user.Wallet, nil
	}
	if _, err := s.cache.Fill(ctx, username, user.Wallet, gen); err != nil {
		s.log.Warn("wallet cache write failed", slog.String("username", username), slog.Any("error", err))
	}

	return user.Wallet, nil
}

// ListGames returns every game of the user, newest first.
func (s *Service) ListGames(ctx context.Context, username string) ([]domain.Game, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	games, err := s.games.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return games, nil
}

// AddGames records one ticket and settles it against the wallet.
func (s *Service) AddGames(ctx context.Context, username string, batch []domain.GameInput) ([]domain.Game, error) {
	if err := ValidateBatch(batch); err != nil {
		return nil, err
	}

	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	delta, _ := domain.Settle(batch)
	price, _ := domain.TicketPrice(len(batch))
	ticketID := uuid.NewString()

	games := make([]domain.Game, len(batch))
	wins := 0
	for i, in := range batch {
		win := in.IsWin()
		if win {
			wins++
		}
		games[i] = domain.Game{
			TicketID: ticketID,
			Number1:  in.Number1,
			Number2:  in.Number2,
			Number3:  in.Number3,
			Number4:  in.Number4,
			Dealer:   in.Dealer,
			Prize:    in.Prize,
			Win:      win,
		}
	}

	created, wallet, err := s.games.CreateTicket(ctx, user.ID, games, delta)
	if err != nil {
		s.logError("add_games", username, err)
		return nil, apperrors.NewDatabaseError(err)
	}

	s.invalidate(ctx, username)
	metrics.RecordTicket(price, len(created), wins)

	s.log.Info("ticket recorded",
		slog.Int64("user_id", user.ID),
		slog.String("ticket_id", ticketID),
		slog.Int64("price", price),
		slog.Int("wins", wins),
		slog.Int64("wallet", wallet),
	)

	return created, nil
}

// DeleteGame removes one game of the user. The wallet is left as is.
func (s *Service) DeleteGame(ctx context.Context, username string, gameID int64) error {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}

	if err := s.games.Delete(ctx, user.ID, gameID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFoundError(MsgGameNotFound)
		}
		return apperrors.NewDatabaseError(err)
	}

	s.log.Info("game deleted", slog.Int64("user_id", user.ID), slog.Int64("game_id", gameID))
	return nil
}

// AdjustWallet adds amount to the wallet and returns the new balance.
func (s *Service) AdjustWallet(ctx context.Context, username string, amount int64) (int64, error) {
	user, err := s.lookup(ctx, username)
	if err != nil {
		return 0, err
	}

	wallet, err := s.users.AdjustWallet(ctx, user.ID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperrors.NewNotFoundError(MsgUserNotFound)
		}
		return 0, apperrors.NewDatabaseError(err)
	}

	s.invalidate(ctx, username)
	return wallet, nil
}

// ValidateBatch applies the ticket rules to a batch before anything is stored.
func ValidateBatch(batch []domain.GameInput) error {
	if _, ok := domain.TicketPrice(len(batch)); !ok {
		return apperrors.NewValidationError(MsgInvalidGameData)
	}

	for _, g := range batch {
		for _, n := range g.Numbers() {
			if !inRange(n) {
				return apperrors.NewValidationError(MsgNumberRange)
			}
		}
		if !inRange(g.Dealer) {
			return apperrors.NewValidationError(MsgNumberRange)
		}
		if g.Prize < domain.MinPrize {
			return apperrors.NewValidationError(MsgPrizeTooLow)
		}
	}

	return nil
}

func validateCredentials(username, password string) error {
	if len(username) < domain.MinUsernameLength {
		return apperrors.NewValidationError(MsgUsernameTooShort)
	}
	if len(password) < domain.MinPasswordLength {
		return apperrors.NewValidationError(MsgPasswordTooShort)
	}
	return nil
}

func inRange(n int) bool {
	return n >= domain.MinNumber && n <= domain.MaxNumber
}

func (s *Service) lookup(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(MsgUserNotFound)
		}
		s.logError("lookup", username, err)
		return nil, apperrors.NewDatabaseError(err)
	}
	return user, nil
}

func (s *Service) invalidate(ctx context.Context, username string) {
	if err := s.cache.Invalidate(ctx, username); err != nil {
		s.log.Warn("wallet cache invalidation failed", slog.String("username", username), slog.Any("error", err))
	}
}

func (s *Service) logError(op, username string, err error) {
	s.log.Error("tracker operation failed", slog.String("op", op), slog.String("username", username), slog.Any("error", err))
}
