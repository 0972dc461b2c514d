// Package testutil starts a fully wired tracker API backed by in-memory
// SQLite and miniredis for tests of its clients.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/blackjack-tracker/internal/auth"
	"github.com/Proton-105/blackjack-tracker/internal/database"
	"github.com/Proton-105/blackjack-tracker/internal/httpapi"
	"github.com/Proton-105/blackjack-tracker/internal/idempotency"
	"github.com/Proton-105/blackjack-tracker/internal/repository"
	"github.com/Proton-105/blackjack-tracker/internal/tracker"
	"github.com/Proton-105/blackjack-tracker/internal/walletcache"
	"github.com/Proton-105/blackjack-tracker/pkg/config"
)

// Secret signs the tokens of the test server.
const Secret = "test-secret-0123456789"

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Redis starts miniredis and returns a client connected to it.
func Redis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// TrackerServer starts the tracker API and returns its base URL.
func TrackerServer(t testing.TB) string {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite, Logger()))

	client, _ := Redis(t)

	svc := tracker.NewService(
		repository.NewUserRepository(db, repository.DialectSQLite, Logger()),
		repository.NewGameRepository(db, repository.DialectSQLite, Logger()),
		auth.NewTokenIssuer(Secret, 30*time.Minute),
		walletcache.NewCache(client, time.Minute),
		Logger(),
	)

	router := httpapi.NewRouter(svc, httpapi.Options{
		Idempotency: idempotency.NewManager(idempotency.NewRedisStore(client, Logger()), Logger()),
	}, Logger())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}
