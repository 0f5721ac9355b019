// Package snapshot persists the terminal client's session on the device: the
// access token and the last known ledger snapshot, in a local SQLite
// database. There is at most one session; logout removes it.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lingua-api/internal/client/snapshot/migrations"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no saved session")

// Snapshot is the saved session.
type Snapshot struct {
	Token   string
	User    domain.User
	SavedAt time.Time
}

// Store reads and writes the saved session.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies
// pending migrations. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		now:    time.Now,
		logger: logger.With(slog.String("component", "snapshot_store")),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to create snapshot migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate snapshot database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the saved session.
func (s *Store) Save(ctx context.Context, token string, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (id, token, user_json, saved_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			saved_at = excluded.saved_at
	`, token, string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// UpdateUser replaces the saved user and keeps the token.
// Returns ErrNoSession when nobody is logged in.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE session SET user_json = ?, saved_at = ? WHERE id = 1`,
		string(data), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to update user snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user snapshot: %w", err)
	}
	if n == 0 {
		return ErrNoSession
	}
	return nil
}

// Load returns the saved session, or ErrNoSession.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	var (
		snap     Snapshot
		userJSON string
		savedAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_json, saved_at FROM session WHERE id = 1`,
	).Scan(&snap.Token, &userJSON, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal([]byte(userJSON), &snap.User); err != nil {
		return nil, fmt.Errorf("failed to decode user snapshot: %w", err)
	}
	snap.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		s.logger.Warn("unreadable snapshot timestamp", slog.String("saved_at", savedAt))
	}
	return &snap, nil
}

// Clear removes the saved session. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
