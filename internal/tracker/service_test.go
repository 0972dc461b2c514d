package tracker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/internal/auth"
	"github.com/Proton-105/blackjack-tracker/internal/database"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
	apperrors "github.com/Proton-105/blackjack-tracker/internal/errors"
	"github.com/Proton-105/blackjack-tracker/internal/repository"
	"github.com/Proton-105/blackjack-tracker/internal/walletcache"
	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

type fixture struct {
	svc    *Service
	users  repository.UserRepository
	games  repository.GameRepository
	cache  *walletcache.Cache
	mr     *miniredis.Miniredis
	issuer *auth.TokenIssuer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite, testLogger()))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := walletcache.NewCache(client, time.Minute)
	issuer := auth.NewTokenIssuer("test-secret-0123456789", 30*time.Minute)
	users := repository.NewUserRepository(db, repository.DialectSQLite, testLogger())
	games := repository.NewGameRepository(db, repository.DialectSQLite, testLogger())
	svc := NewService(users, games, issuer, cache, testLogger())

	return &fixture{svc: svc, users: users, games: games, cache: cache, mr: mr, issuer: issuer}
}

func game(numbers [4]int, dealer int, prize int64) domain.GameInput {
	return domain.GameInput{
		Number1: numbers[0],
		Number2: numbers[1],
		Number3: numbers[2],
		Number4: numbers[3],
		Dealer:  dealer,
		Prize:   prize,
	}
}

func assertUserMessage(t *testing.T, err error, status int, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperrors.HTTPStatus(err))
	assert.Equal(t, msg, apperrors.UserMessage(err))
}

func TestService_RegisterAndLogin(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	token, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	subject, err := f.svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	me, err := f.svc.Me(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, "alice", me)

	wallet, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet)
}

func TestService_RegisterValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	testCases := []struct {
		name     string
		username string
		password string
		msg      string
	}{
		{name: "duplicate", username: "alice", password: "x", msg: MsgUserExists},
		{name: "short username", username: "al", password: "secret1", msg: MsgUsernameTooShort},
		{name: "short password", username: "bob", password: "12345", msg: MsgPasswordTooShort},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.Register(ctx, tc.username, tc.password)
			assertUserMessage(t, err, 400, tc.msg)
		})
	}
}

func TestService_LoginFailures(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	_, err := f.svc.Login(ctx, "alice", "wrong-password")
	assertUserMessage(t, err, 400, MsgInvalidLogin)

	_, err = f.svc.Login(ctx, "nobody", "secret1")
	assertUserMessage(t, err, 400, MsgInvalidLogin)

	_, err = f.svc.Login(ctx, "al", "secret1")
	assertUserMessage(t, err, 400, MsgUsernameTooShort)
}

func TestService_Authenticate(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Authenticate("garbage")
	assertUserMessage(t, err, 401, MsgInvalidToken)

	other := auth.NewTokenIssuer("another-secret-0123456", time.Minute)
	token, err := other.Issue("alice")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(token)
	assertUserMessage(t, err, 401, MsgInvalidToken)
}

func TestService_MeUnknownUser(t *testing.T) {
	f := setupService(t)

	_, err := f.svc.Me(context.Background(), "ghost")
	assertUserMessage(t, err, 404, MsgUserNotFound)
}

func TestService_AddGamesQuadTicket(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	// prime the cache so the submission has something to invalidate
	_, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, f.mr.Exists("wallet:alice"))

	batch := []domain.GameInput{
		game([4]int{2, 3, 4, 18}, 17, 1000), // win
		game([4]int{1, 2, 3, 4}, 20, 400),   // loss
		game([4]int{21, 1, 1, 1}, 20, 300),  // win
		game([4]int{5, 5, 5, 5}, 5, 900),    // tie is a loss
	}

	created, err := f.svc.AddGames(ctx, "alice", batch)
	require.NoError(t, err)
	require.Len(t, created, 4)

	assert.False(t, f.mr.Exists("wallet:alice"))

	ticketID := created[0].TicketID
	assert.NotEmpty(t, ticketID)
	for _, g := range created {
		assert.Equal(t, ticketID, g.TicketID)
		assert.NotZero(t, g.ID)
	}
	assert.True(t, created[0].Win)
	assert.False(t, created[1].Win)
	assert.True(t, created[2].Win)
	assert.False(t, created[3].Win)

	wallet, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000+300-500), wallet)

	games, err := f.svc.ListGames(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, games, 4)
}

func TestService_AddGamesSingleTicket(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	created, err := f.svc.AddGames(ctx, "alice", []domain.GameInput{game([4]int{1, 2, 3, 4}, 10, 300)})
	require.NoError(t, err)
	assert.Len(t, created, 1)

	wallet, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), wallet)
}

func TestService_AddGamesValidation(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	valid := game([4]int{1, 2, 3, 4}, 10, 300)

	testCases := []struct {
		name  string
		batch []domain.GameInput
		msg   string
	}{
		{name: "empty", batch: nil, msg: MsgInvalidGameData},
		{name: "two games", batch: []domain.GameInput{valid, valid}, msg: MsgInvalidGameData},
		{name: "number too high", batch: []domain.GameInput{game([4]int{1, 22, 3, 4}, 10, 300)}, msg: MsgNumberRange},
		{name: "number zero", batch: []domain.GameInput{game([4]int{0, 2, 3, 4}, 10, 300)}, msg: MsgNumberRange},
		{name: "dealer out of range", batch: []domain.GameInput{game([4]int{1, 2, 3, 4}, 0, 300)}, msg: MsgNumberRange},
		{name: "prize too low", batch: []domain.GameInput{game([4]int{1, 2, 3, 4}, 10, 299)}, msg: MsgPrizeTooLow},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddGames(ctx, "alice", tc.batch)
			assertUserMessage(t, err, 400, tc.msg)
		})
	}

	games, err := f.svc.ListGames(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, games)

	wallet, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, wallet)
}

func TestService_DeleteGame(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))
	require.NoError(t, f.svc.Register(ctx, "bob", "secret1"))

	created, err := f.svc.AddGames(ctx, "alice", []domain.GameInput{
		game([4]int{1, 2, 3, 4}, 10, 300),
		game([4]int{1, 2, 3, 4}, 10, 300),
		game([4]int{1, 2, 3, 4}, 10, 300),
		game([4]int{1, 2, 3, 4}, 10, 300),
	})
	require.NoError(t, err)
	walletBefore, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)

	err = f.svc.DeleteGame(ctx, "alice", 9999)
	assertUserMessage(t, err, 404, MsgGameNotFound)

	err = f.svc.DeleteGame(ctx, "bob", created[0].ID)
	assertUserMessage(t, err, 404, MsgGameNotFound)

	require.NoError(t, f.svc.DeleteGame(ctx, "alice", created[0].ID))

	games, err := f.svc.ListGames(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, games, 3)
	for _, g := range games {
		assert.NotEqual(t, created[0].ID, g.ID)
	}

	walletAfter, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, walletBefore, walletAfter)
}

func TestService_AdjustWallet(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	_, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)

	wallet, err := f.svc.AdjustWallet(ctx, "alice", 1200)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), wallet)

	cached, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), cached)

	_, err = f.svc.AdjustWallet(ctx, "ghost", 1)
	assertUserMessage(t, err, 404, MsgUserNotFound)
}

func TestService_WalletServedFromCache(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	require.NoError(t, f.cache.Set(ctx, "alice", 4242))

	wallet, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(4242), wallet)
}

// pausingUsers holds the next armed FindByUsername after it has read the row.
type pausingUsers struct {
	repository.UserRepository
	armed  atomic.Bool
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingUsers) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := p.UserRepository.FindByUsername(ctx, username)
	if p.armed.CompareAndSwap(true, false) {
		close(p.read)
		<-p.resume
	}
	return user, err
}

func TestService_WalletReadRacingTicketDoesNotCacheStale(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	require.NoError(t, f.svc.Register(ctx, "alice", "secret1"))

	slow := &pausingUsers{UserRepository: f.users, read: make(chan struct{}), resume: make(chan struct{})}
	slow.armed.Store(true)
	reader := NewService(slow, f.games, f.issuer, f.cache, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := reader.Wallet(ctx, "alice")
		done <- err
	}()

	<-slow.read
	_, err := f.svc.AddGames(ctx, "alice", []domain.GameInput{game([4]int{2, 3, 4, 5}, 20, 300)})
	require.NoError(t, err)
	close(slow.resume)
	require.NoError(t, <-done)

	_, cached, err := f.cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, cached)

	wallet, err := f.svc.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), wallet)

	wallet, err = reader.Wallet(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(-300), wallet)
}
