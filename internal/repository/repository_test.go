package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/internal/database"
	"github.com/Proton-105/blackjack-tracker/internal/domain"
	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite, testLogger()))
	return db
}

func createUser(t *testing.T, repo UserRepository, username string) *domain.User {
	t.Helper()

	user := &domain.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotZero(t, user.ID)
	return user
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t), DialectSQLite, testLogger())
	ctx := context.Background()

	created := createUser(t, repo, "alice")

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)
	assert.Equal(t, int64(0), found.Wallet)
	assert.WithinDuration(t, time.Now(), found.CreatedAt, time.Minute)

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t), DialectSQLite, testLogger())

	createUser(t, repo, "alice")
	err := repo.Create(context.Background(), &domain.User{Username: "alice", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_AdjustWallet(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t), DialectSQLite, testLogger())
	ctx := context.Background()
	user := createUser(t, repo, "alice")

	wallet, err := repo.AdjustWallet(ctx, user.ID, 1200)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), wallet)

	wallet, err = repo.AdjustWallet(ctx, user.ID, -1700)
	require.NoError(t, err)
	assert.Equal(t, int64(-500), wallet)

	_, err = repo.AdjustWallet(ctx, user.ID+100, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGameRepository_CreateTicketAndList(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db, DialectSQLite, testLogger())
	games := NewGameRepository(db, DialectSQLite, testLogger())
	ctx := context.Background()
	user := createUser(t, users, "alice")

	older := time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)

	_, wallet, err := games.CreateTicket(ctx, user.ID, []domain.Game{
		{TicketID: "t1", Number1: 21, Number2: 1, Number3: 1, Number4: 1, Dealer: 17, Prize: 1000, Win: true, CreatedAt: older},
	}, 700)
	require.NoError(t, err)
	assert.Equal(t, int64(700), wallet)

	created, wallet, err := games.CreateTicket(ctx, user.ID, []domain.Game{
		{TicketID: "t2", Number1: 2, Number2: 3, Number3: 4, Number4: 5, Dealer: 18, Prize: 300, CreatedAt: newer},
		{TicketID: "t2", Number1: 2, Number2: 3, Number3: 4, Number4: 5, Dealer: 18, Prize: 300, CreatedAt: newer},
		{TicketID: "t2", Number1: 2, Number2: 3, Number3: 4, Number4: 5, Dealer: 18, Prize: 300, CreatedAt: newer},
		{TicketID: "t2", Number1: 2, Number2: 3, Number3: 4, Number4: 5, Dealer: 18, Prize: 300, CreatedAt: newer},
	}, -500)
	require.NoError(t, err)
	assert.Len(t, created, 4)
	assert.Equal(t, int64(200), wallet)
	for _, g := range created {
		assert.NotZero(t, g.ID)
		assert.Equal(t, user.ID, g.UserID)
		assert.True(t, g.CreatedAt.Equal(newer))
	}

	listed, err := games.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 5)
	assert.Equal(t, "t2", listed[0].TicketID)
	assert.Equal(t, "t1", listed[4].TicketID)
	assert.True(t, listed[4].Win)
	assert.True(t, listed[4].CreatedAt.Equal(older))
}

func TestGameRepository_ListRejectsUnreadableTimestamp(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db, DialectSQLite, testLogger())
	games := NewGameRepository(db, DialectSQLite, testLogger())
	ctx := context.Background()
	user := createUser(t, users, "alice")

	created, _, err := games.CreateTicket(ctx, user.ID, []domain.Game{
		{TicketID: "t1", Number1: 2, Number2: 3, Number3: 4, Number4: 5, Dealer: 18, Prize: 300},
	}, -300)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `UPDATE games SET created_at = 'yesterday' WHERE id = ?`, created[0].ID)
	require.NoError(t, err)

	listed, err := games.ListByUser(ctx, user.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yesterday")
	assert.Nil(t, listed)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{name: "stored layout", value: "2024-01-05T10:00:00.000000Z", want: time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC)},
		{name: "rfc3339 with offset", value: "2024-01-05T12:00:00+02:00", want: time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC)},
		{name: "garbage", value: "yesterday", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTimestamp(tc.value)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got))
		})
	}
}

func TestGameRepository_CreateTicketRollsBackOnMissingUser(t *testing.T) {
	db := setupTestDB(t)
	games := NewGameRepository(db, DialectSQLite, testLogger())
	ctx := context.Background()

	_, _, err := games.CreateTicket(ctx, 999, []domain.Game{
		{TicketID: "t1", Number1: 1, Number2: 1, Number3: 1, Number4: 1, Dealer: 1, Prize: 300},
	}, -300)
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&count))
	assert.Zero(t, count)
}

func TestGameRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db, DialectSQLite, testLogger())
	games := NewGameRepository(db, DialectSQLite, testLogger())
	ctx := context.Background()
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	created, _, err := games.CreateTicket(ctx, alice.ID, []domain.Game{
		{TicketID: "t1", Number1: 1, Number2: 1, Number3: 1, Number4: 1, Dealer: 5, Prize: 300},
	}, -300)
	require.NoError(t, err)
	id := created[0].ID

	assert.ErrorIs(t, games.Delete(ctx, bob.ID, id), ErrNotFound)
	assert.ErrorIs(t, games.Delete(ctx, alice.ID, id+1000), ErrNotFound)

	require.NoError(t, games.Delete(ctx, alice.ID, id))
	listed, err := games.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
