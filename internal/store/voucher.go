package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
)

// VoucherStore provides read access to the voucher catalog.
type VoucherStore interface {
	// ListActive returns active vouchers ordered by ascending cost.
	ListActive(ctx context.Context) ([]domain.Voucher, error)

	// GetActiveByID returns the voucher if it exists and is active.
	// Returns ErrVoucherNotFound otherwise.
	GetActiveByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error)

	// WithTx returns a new VoucherStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) VoucherStore
}

// PurchaseStore persists purchase records. Records are append-only.
type PurchaseStore interface {
	// Create inserts a purchase record.
	// Returns ErrInvalidEntity if the user or voucher reference is invalid.
	Create(ctx context.Context, record *domain.PurchaseRecord) error

	// ListByPhone returns the user's purchases, newest first.
	ListByPhone(ctx context.Context, phone string) ([]domain.PurchaseRecord, error)

	// WithTx returns a new PurchaseStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PurchaseStore
}
