package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
)

// UserStore defines the interface for user and ledger persistence.
// Every ledger mutation is a single atomic statement keyed by phone.
type UserStore interface {
	// Create saves a new user to the store.
	// It validates the user and hashes the plaintext password internally.
	// Returns ErrPhoneExists if the phone is already registered.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByPhone retrieves a user by phone.
	// Returns ErrUserNotFound if the user does not exist.
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)

	// UpdateLogin persists the streak value and last login date.
	// Returns ErrUserNotFound if the user does not exist.
	UpdateLogin(ctx context.Context, phone string, streak int, lastLogin time.Time) error

	// IncrementLearnedWords atomically adds one learned word and returns the new count.
	// Returns ErrUserNotFound if the user does not exist.
	IncrementLearnedWords(ctx context.Context, phone string) (int, error)

	// SetPremium marks the user premium until the given time.
	// Returns ErrUserNotFound if the user does not exist.
	SetPremium(ctx context.Context, phone string, until time.Time) error

	// DebitCoins subtracts amount from the balance only if the balance still
	// equals observed, and returns the new balance.
	// Returns ErrConflict if the balance changed since it was observed
	// (or the row is gone), and ErrInvalidEntity if the debit would make
	// the balance negative.
	DebitCoins(ctx context.Context, phone string, amount, observed int) (int, error)

	// CreditCoins atomically adds amount to the balance and returns the new balance.
	// Returns ErrUserNotFound if the user does not exist.
	CreditCoins(ctx context.Context, phone string, amount int) (int, error)

	// WithTx returns a new UserStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	WithTx(tx *sql.Tx) UserStore
}
