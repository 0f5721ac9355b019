package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/store"
)

// PostgresVoucherStore implements store.VoucherStore.
type PostgresVoucherStore struct {
	db store.DBTX
}

// NewPostgresVoucherStore creates a new PostgreSQL implementation of the VoucherStore interface.
func NewPostgresVoucherStore(db store.DBTX) *PostgresVoucherStore {
	return &PostgresVoucherStore{db: db}
}

var _ store.VoucherStore = (*PostgresVoucherStore)(nil)

// WithTx implements store.VoucherStore.WithTx
func (s *PostgresVoucherStore) WithTx(tx *sql.Tx) store.VoucherStore {
	return &PostgresVoucherStore{db: tx}
}

// ListActive implements store.VoucherStore.ListActive
func (s *PostgresVoucherStore) ListActive(ctx context.Context) ([]domain.Voucher, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, cost_coins, discount_percent, is_active
		FROM vouchers
		WHERE is_active
		ORDER BY cost_coins ASC, title ASC`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	vouchers := make([]domain.Voucher, 0)
	for rows.Next() {
		var v domain.Voucher
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.CostCoins, &v.DiscountPercent, &v.IsActive); err != nil {
			return nil, MapError(err)
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return vouchers, nil
}

// GetActiveByID implements store.VoucherStore.GetActiveByID
func (s *PostgresVoucherStore) GetActiveByID(ctx context.Context, id uuid.UUID) (*domain.Voucher, error) {
	var v domain.Voucher
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, cost_coins, discount_percent, is_active
		FROM vouchers
		WHERE id = $1 AND is_active`,
		id,
	).Scan(&v.ID, &v.Title, &v.Description, &v.CostCoins, &v.DiscountPercent, &v.IsActive)
	if err != nil {
		return nil, mapNotFound(err, store.ErrVoucherNotFound)
	}
	return &v, nil
}
