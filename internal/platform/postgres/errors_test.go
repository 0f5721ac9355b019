package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/lingua-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

func TestMapError(t *testing.T) {
	plain := errors.New("syntax error")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, wantIs: store.ErrDuplicate},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503", ConstraintName: "purchases_voucher_id_fkey"}, wantIs: store.ErrInvalidEntity},
		{name: "check violation", err: &pgconn.PgError{Code: "23514", ConstraintName: "users_coins_non_negative"}, wantIs: store.ErrInvalidEntity},
		{name: "not null violation", err: &pgconn.PgError{Code: "23502", ColumnName: "phone"}, wantIs: store.ErrInvalidEntity},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, wantIs: store.ErrConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, wantIs: store.ErrConflict},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, wantIs: store.ErrTransient},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, wantIs: store.ErrTransient},
		{name: "bad connection", err: fmt.Errorf("exec: %w", driver.ErrBadConn), wantIs: store.ErrTransient},
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantIs: store.ErrTransient},
		{name: "unmapped pg error", err: &pgconn.PgError{Code: "42601"}},
		{name: "plain error", err: plain, wantIs: plain},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError(tc.err)
			if tc.wantNil {
				assert.NoError(t, got)
				return
			}
			require.Error(t, got)
			if tc.wantIs != nil {
				assert.ErrorIs(t, got, tc.wantIs)
			}
		})
	}
}

func TestMapError_UnmappedKeepsOriginal(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42601"}
	got := MapError(pgErr)

	var target *pgconn.PgError
	require.True(t, errors.As(got, &target))
	assert.Equal(t, "42601", target.Code)
	assert.False(t, errors.Is(got, store.ErrTransient))
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsCheckConstraintViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23514"})))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("other")))
}

func TestCheckRowsAffected(t *testing.T) {
	assert.NoError(t, CheckRowsAffected(fakeResult{rows: 1}, store.ErrUserNotFound))
	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, store.ErrUserNotFound), store.ErrUserNotFound)
	assert.ErrorIs(t, CheckRowsAffected(fakeResult{rows: 0}, nil), store.ErrNotFound)
	assert.Error(t, CheckRowsAffected(nil, nil))

	resultErr := errors.New("driver does not support RowsAffected")
	assert.ErrorIs(t, CheckRowsAffected(fakeResult{err: resultErr}, nil), resultErr)
}

func TestMapUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}

	got := MapUniqueViolation(dup, store.ErrPhoneExists)
	assert.ErrorIs(t, got, store.ErrPhoneExists)
	assert.ErrorIs(t, got, store.ErrDuplicate)

	assert.ErrorIs(t, MapUniqueViolation(dup, nil), store.ErrDuplicate)
	assert.ErrorIs(t, MapUniqueViolation(&pgconn.PgError{Code: "08006"}, store.ErrPhoneExists), store.ErrTransient)
}
