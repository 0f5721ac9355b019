package postgres

import (
	"context"
	"database/sql"

	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/store"
)

// PostgresPurchaseStore implements store.PurchaseStore.
type PostgresPurchaseStore struct {
	db store.DBTX
}

// NewPostgresPurchaseStore creates a new PostgreSQL implementation of the PurchaseStore interface.
func NewPostgresPurchaseStore(db store.DBTX) *PostgresPurchaseStore {
	return &PostgresPurchaseStore{db: db}
}

var _ store.PurchaseStore = (*PostgresPurchaseStore)(nil)

// WithTx implements store.PurchaseStore.WithTx
func (s *PostgresPurchaseStore) WithTx(tx *sql.Tx) store.PurchaseStore {
	return &PostgresPurchaseStore{db: tx}
}

// Create implements store.PurchaseStore.Create
func (s *PostgresPurchaseStore) Create(ctx context.Context, record *domain.PurchaseRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, user_phone, voucher_id, purchased_at)
		VALUES ($1, $2, $3, $4)`,
		record.ID, record.UserPhone, record.VoucherID, record.PurchasedAt,
	)
	return MapError(err)
}

// ListByPhone implements store.PurchaseStore.ListByPhone
func (s *PostgresPurchaseStore) ListByPhone(ctx context.Context, phone string) ([]domain.PurchaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_phone, voucher_id, purchased_at
		FROM purchases
		WHERE user_phone = $1
		ORDER BY purchased_at DESC, id`,
		phone,
	)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]domain.PurchaseRecord, 0)
	for rows.Next() {
		var r domain.PurchaseRecord
		if err := rows.Scan(&r.ID, &r.UserPhone, &r.VoucherID, &r.PurchasedAt); err != nil {
			return nil, MapError(err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}
