package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/platform/logger"
	"github.com/phrazzld/lingua-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, phone, first_name, last_name, hashed_password, coins, is_premium,
	premium_until, streak, last_login, learned_words, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// A bcryptCost outside bcrypt's accepted range falls back to bcrypt.DefaultCost.
func NewPostgresUserStore(db store.DBTX, bcryptCost int) *PostgresUserStore {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:         tx,
		bcryptCost: s.bcryptCost,
	}
}

// Create implements store.UserStore.Create.
// The plaintext password is hashed here and cleared from the user afterwards.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContext(ctx)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, phone, first_name, last_name, hashed_password, coins,
			is_premium, premium_until, streak, last_login, learned_words, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Phone, user.FirstName, user.LastName, user.HashedPassword, user.Coins,
		user.IsPremium, nullTime(user.PremiumUntil), user.Streak, nullTime(user.LastLogin),
		user.LearnedWords, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("phone already registered", slog.String("user_id", user.ID.String()))
		}
		return MapUniqueViolation(err, store.ErrPhoneExists)
	}

	log.Debug("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, mapNotFound(err, store.ErrUserNotFound)
	}
	return user, nil
}

// GetByPhone implements store.UserStore.GetByPhone
func (s *PostgresUserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	user, err := scanUser(row)
	if err != nil {
		return nil, mapNotFound(err, store.ErrUserNotFound)
	}
	return user, nil
}

// UpdateLogin implements store.UserStore.UpdateLogin
func (s *PostgresUserStore) UpdateLogin(
	ctx context.Context,
	phone string,
	streak int,
	lastLogin time.Time,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET streak = $2, last_login = $3, updated_at = NOW()
		WHERE phone = $1`,
		phone, streak, lastLogin,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// IncrementLearnedWords implements store.UserStore.IncrementLearnedWords
func (s *PostgresUserStore) IncrementLearnedWords(ctx context.Context, phone string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users SET learned_words = learned_words + 1, updated_at = NOW()
		WHERE phone = $1
		RETURNING learned_words`,
		phone,
	).Scan(&count)
	if err != nil {
		return 0, mapNotFound(err, store.ErrUserNotFound)
	}
	return count, nil
}

// SetPremium implements store.UserStore.SetPremium
func (s *PostgresUserStore) SetPremium(ctx context.Context, phone string, until time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_premium = TRUE, premium_until = $2, updated_at = NOW()
		WHERE phone = $1`,
		phone, until,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// DebitCoins implements store.UserStore.DebitCoins.
// The WHERE clause is the compare-and-set: the row only changes if the
// balance is still the one the caller observed.
func (s *PostgresUserStore) DebitCoins(
	ctx context.Context,
	phone string,
	amount, observed int,
) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users SET coins = coins - $2, updated_at = NOW()
		WHERE phone = $1 AND coins = $3
		RETURNING coins`,
		phone, amount, observed,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.NewStoreError("user", "debit", "balance changed since it was read", store.ErrConflict)
		}
		return 0, MapError(err)
	}
	return balance, nil
}

// CreditCoins implements store.UserStore.CreditCoins
func (s *PostgresUserStore) CreditCoins(ctx context.Context, phone string, amount int) (int, error) {
	var balance int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users SET coins = coins + $2, updated_at = NOW()
		WHERE phone = $1
		RETURNING coins`,
		phone, amount,
	).Scan(&balance)
	if err != nil {
		return 0, mapNotFound(err, store.ErrUserNotFound)
	}
	return balance, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user         domain.User
		premiumUntil sql.NullTime
		lastLogin    sql.NullTime
	)
	err := row.Scan(
		&user.ID,
		&user.Phone,
		&user.FirstName,
		&user.LastName,
		&user.HashedPassword,
		&user.Coins,
		&user.IsPremium,
		&premiumUntil,
		&user.Streak,
		&lastLogin,
		&user.LearnedWords,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if premiumUntil.Valid {
		t := premiumUntil.Time
		user.PremiumUntil = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
