package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/api/shared"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/mocks"
	"github.com/phrazzld/lingua-api/internal/service/assessment"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
	"github.com/stretchr/testify/require"
)

var (
	testPhone = "+77011234567"
	testNow   = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLedger(mem *mocks.MemStore) ledger.Service {
	cfg := ledger.DefaultConfig()
	cfg.Now = func() time.Time { return testNow }
	cfg.RetryBackoff = time.Millisecond
	return ledger.NewService(mem, mem.Users(), mem.Vouchers(), mem.Purchases(), nil, cfg, discardLogger())
}

func seedUser(t *testing.T, mem *mocks.MemStore, coins int) domain.User {
	t.Helper()
	u, err := domain.NewUser(testPhone, "correct-horse", "Aigerim", "Sadykova")
	require.NoError(t, err)
	require.NoError(t, mem.Users().Create(context.Background(), u))
	stored, ok := mem.User(testPhone)
	require.True(t, ok)
	stored.Coins = coins
	mem.PutUser(stored)
	return stored
}

// newRequest builds a request carrying the test identity and optional chi
// URL params given as key, value pairs.
func newRequest(t *testing.T, method, target string, body any, authenticated bool, params ...string) *http.Request {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	r := httptest.NewRequest(method, target, reader)
	ctx := r.Context()
	if authenticated {
		ctx = shared.WithIdentity(ctx, uuid.New(), testPhone)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return r.WithContext(ctx)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// mockLedgerService overrides selected ledger.Service methods; calls to
// methods without a Fn field reach the embedded service.
type mockLedgerService struct {
	ledger.Service

	SnapshotFn    func(ctx context.Context, phone string) (*domain.User, error)
	PurchaseFn    func(ctx context.Context, phone string, voucherID uuid.UUID) (*ledger.Receipt, error)
	RecordLoginFn func(ctx context.Context, phone string) (*domain.User, error)
}

func (m *mockLedgerService) Snapshot(ctx context.Context, phone string) (*domain.User, error) {
	if m.SnapshotFn != nil {
		return m.SnapshotFn(ctx, phone)
	}
	return m.Service.Snapshot(ctx, phone)
}

func (m *mockLedgerService) Purchase(ctx context.Context, phone string, voucherID uuid.UUID) (*ledger.Receipt, error) {
	if m.PurchaseFn != nil {
		return m.PurchaseFn(ctx, phone, voucherID)
	}
	return m.Service.Purchase(ctx, phone, voucherID)
}

func (m *mockLedgerService) RecordLogin(ctx context.Context, phone string) (*domain.User, error) {
	if m.RecordLoginFn != nil {
		return m.RecordLoginFn(ctx, phone)
	}
	return m.Service.RecordLogin(ctx, phone)
}

// mockExamService implements assessment.Service.
type mockExamService struct {
	GetExamFn func(ctx context.Context) (*assessment.Bundle, error)
}

func (m *mockExamService) GetExam(ctx context.Context) (*assessment.Bundle, error) {
	return m.GetExamFn(ctx)
}
