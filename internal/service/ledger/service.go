// Package ledger implements the progression and commerce ledger: login
// streaks, learned words, coin balance, premium entitlement and the voucher
// purchase transaction.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
)

// Service defines the ledger operations. Every method is keyed by the
// user's phone, the account identifier carried in access tokens.
type Service interface {
	// RecordLogin evaluates the login streak for today and persists it when
	// it changed. If persisting fails the previous snapshot is returned with
	// no error; the stored streak stays authoritative.
	// Returns store.ErrUserNotFound if the user does not exist.
	RecordLogin(ctx context.Context, phone string) (*domain.User, error)

	// Snapshot returns the user's current ledger. An expired premium
	// entitlement reads as not premium.
	Snapshot(ctx context.Context, phone string) (*domain.User, error)

	// CreditLearnedWord atomically increments the learned-word count and
	// returns the new value.
	CreditLearnedWord(ctx context.Context, phone string) (int, error)

	// AwardCoins credits coins earned by completing exercises and returns
	// the new balance. amount must be positive.
	AwardCoins(ctx context.Context, phone string, amount int) (int, error)

	// DebitCoins subtracts amount from the balance and returns the new
	// balance. Returns domain.ErrInsufficientFunds without mutating anything
	// when the balance is lower than amount.
	DebitCoins(ctx context.Context, phone string, amount int) (int, error)

	// GrantPremium marks the user premium for months months starting now.
	// A non-positive months uses the configured default.
	GrantPremium(ctx context.Context, phone string, months int) (*domain.User, error)

	// ListVouchers returns active vouchers by ascending cost.
	ListVouchers(ctx context.Context) ([]domain.Voucher, error)

	// Purchase buys a voucher. The debit and the purchase record commit
	// together or not at all.
	Purchase(ctx context.Context, phone string, voucherID uuid.UUID) (*Receipt, error)

	// PurchaseHistory returns the user's purchases, newest first.
	PurchaseHistory(ctx context.Context, phone string) ([]domain.PurchaseRecord, error)
}

// Receipt is the outcome of a committed purchase.
type Receipt struct {
	Record  domain.PurchaseRecord   `json:"record"`
	Voucher domain.Voucher          `json:"voucher"`
	Balance int                     `json:"balance"`
	History []domain.PurchaseRecord `json:"history"`
}

// Config tunes the ledger.
type Config struct {
	// MaxConflictRetries bounds how often a debit that lost a balance race
	// is retried before store.ErrConflict is returned.
	MaxConflictRetries int

	// RetryBackoff is the constant wait between conflict retries.
	RetryBackoff time.Duration

	// PremiumMonths is used by GrantPremium when no positive months is given.
	PremiumMonths int

	// CacheTTL is how long the voucher catalog stays cached.
	CacheTTL time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxConflictRetries: 3,
		RetryBackoff:       25 * time.Millisecond,
		PremiumMonths:      1,
		CacheTTL:           5 * time.Minute,
		Now:                time.Now,
	}
}
