package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connection checks and fixture writes.
const TestTimeout = 5 * time.Second

// DatabaseURL returns LINGUA_TEST_DB_URL, falling back to DATABASE_URL.
func DatabaseURL() string {
	if u := os.Getenv("LINGUA_TEST_DB_URL"); u != "" {
		return u
	}
	return os.Getenv("DATABASE_URL")
}

// GetTestDBWithT opens a migrated test database, skipping t when no URL is
// configured. The connection is closed on cleanup.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		t.Skip("LINGUA_TEST_DB_URL or DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Database ping failed")

	quiet := slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	require.NoError(t, postgres.Migrate(context.Background(), db, "up", quiet), "Failed to run migrations")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// UniquePhone returns a valid phone number unlikely to collide with other
// test rows.
func UniquePhone() string {
	return fmt.Sprintf("+7701%07d", rand.Intn(10_000_000))
}

// CreateUser commits a user with coins and a unique phone, and deletes it and
// its purchases on cleanup.
func CreateUser(t *testing.T, db *sql.DB, coins int) *domain.User {
	t.Helper()

	user, err := domain.NewUser(UniquePhone(), "password123", "Test", "User")
	require.NoError(t, err)
	user.Coins = coins

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, postgres.NewPostgresUserStore(db, 4).Create(ctx, user), "Failed to create test user")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
		defer cancel()
		if _, err := db.ExecContext(ctx, `DELETE FROM purchases WHERE user_phone = $1`, user.Phone); err != nil {
			t.Logf("Warning: failed to delete test purchases: %v", err)
		}
		if _, err := db.ExecContext(ctx, `DELETE FROM users WHERE phone = $1`, user.Phone); err != nil {
			t.Logf("Warning: failed to delete test user: %v", err)
		}
	})

	return user
}

// testWriter sends log output to t.Log.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
