package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/api"
	"github.com/phrazzld/lingua-api/internal/api/shared"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", 0)
	assert.Error(t, err)
	_, err = New("://nope", 0)
	assert.Error(t, err)
}

func TestClient_LoginAndAuthorizedCall(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req api.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "+77011234567", req.Phone)
			writeJSON(w, http.StatusOK, api.AuthResponse{
				Token: "tok",
				User:  &domain.User{Phone: req.Phone, Streak: 2},
			})
		case "/api/me":
			gotAuth = r.Header.Get("Authorization")
			writeJSON(w, http.StatusOK, domain.User{Phone: "+77011234567", Coins: 40})
		default:
			http.NotFound(w, r)
		}
	})

	resp, err := c.Login(context.Background(), "+77011234567", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.User.Streak)
	assert.Empty(t, c.Token())

	c.SetToken(resp.Token)
	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, me.Coins)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestClient_Purchase(t *testing.T) {
	voucherID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/vouchers/"+voucherID.String()+"/purchase", r.URL.Path)
		writeJSON(w, http.StatusCreated, ledger.Receipt{Balance: 200})
	})

	receipt, err := c.Purchase(context.Background(), voucherID)
	require.NoError(t, err)
	assert.Equal(t, 200, receipt.Balance)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: ErrUnauthorized},
		{name: "insufficient funds", status: http.StatusPaymentRequired, wantErr: domain.ErrInsufficientFunds},
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNotFound},
		{name: "conflict", status: http.StatusConflict, wantErr: ErrConflict},
		{name: "bad request", status: http.StatusBadRequest, wantErr: domain.ErrValidation},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantErr: ErrTransient},
		{name: "internal", status: http.StatusInternalServerError, wantErr: ErrTransient},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, shared.ErrorResponse{Error: "nope", TraceID: "abc"})
			})

			_, err := c.ListVouchers(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, "nope", apiErr.Message)
			assert.Equal(t, "abc", apiErr.TraceID)
		})
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.GetExam(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestClient_TransportFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, time.Second)
	require.NoError(t, err)

	_, err = c.CreditLearnedWord(context.Background())
	assert.ErrorIs(t, err, ErrTransient)
}

func TestClient_MalformedResponseIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := c.AwardCoins(context.Background(), 5)
	assert.ErrorIs(t, err, ErrTransient)
}
