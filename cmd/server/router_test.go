package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/api"
	"github.com/phrazzld/lingua-api/internal/config"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/mocks"
	"github.com/phrazzld/lingua-api/internal/service/assessment"
	"github.com/phrazzld/lingua-api/internal/service/auth"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApplication wires the real services over the in-memory store.
func newTestApplication(t *testing.T, opts ...func(*config.Config)) (*application, *mocks.MemStore) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "info"},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-that-is-at-least-32-characters",
			TokenLifetimeMinutes: 60,
			BcryptCost:           4,
		},
		Ledger: config.LedgerConfig{SelfServiceGrants: true},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)

	mem := mocks.NewMemStore()
	return &application{
		config:            cfg,
		logger:            log,
		userStore:         mem.Users(),
		jwtService:        jwtService,
		passwordVerifier:  auth.NewBcryptVerifier(),
		ledgerService:     ledger.NewService(mem, mem.Users(), mem.Vouchers(), mem.Purchases(), nil, ledger.Config{}, log),
		assessmentService: assessment.NewService(mem.Exam(), nil, time.Minute, log),
	}, mem
}

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRouter_Health(t *testing.T) {
	app, _ := newTestApplication(t)
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()

	resp := (&client{t: t, server: server}).do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApplication(t)
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()
	c := &client{t: t, server: server}

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodPost, "/api/me/learned-words"},
		{http.MethodPost, "/api/me/coins"},
		{http.MethodPost, "/api/me/premium"},
		{http.MethodGet, "/api/vouchers"},
		{http.MethodPost, "/api/vouchers/" + uuid.NewString() + "/purchase"},
		{http.MethodGet, "/api/purchases"},
		{http.MethodGet, "/api/exam"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, c.do(rt.method, rt.path, nil).StatusCode)
		})
	}

	c.token = "not-a-jwt"
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/me", nil).StatusCode)
}

func TestRouter_LedgerJourney(t *testing.T) {
	app, mem := newTestApplication(t)
	voucher := domain.Voucher{ID: uuid.New(), Title: "Cafe", CostCoins: 300, DiscountPercent: 15, IsActive: true}
	mem.PutVoucher(voucher)
	mem.SetExam(&domain.ExamConfig{
		ExamName:        "Placement test",
		StartTime:       time.Now().Add(time.Hour),
		DurationMinutes: 30,
	}, []domain.Question{{Number: 1, Prompt: "kitap", Options: []string{"book", "cat"}}})

	server := httptest.NewServer(app.setupRouter())
	defer server.Close()
	c := &client{t: t, server: server}

	register := api.RegisterRequest{Phone: "+77011234567", Password: "correct-horse", FirstName: "Aigerim"}
	resp := c.do(http.MethodPost, "/api/auth/register", register)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = c.do(http.MethodPost, "/api/auth/register", register)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = c.do(http.MethodPost, "/api/auth/login", api.LoginRequest{Phone: register.Phone, Password: register.Password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[api.AuthResponse](t, resp)
	assert.Equal(t, 1, login.User.Streak)
	c.token = login.Token

	resp = c.do(http.MethodPost, "/api/me/coins", api.AwardCoinsRequest{Amount: 500})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 500, decode[api.BalanceResponse](t, resp).Coins)

	resp = c.do(http.MethodPost, "/api/vouchers/"+voucher.ID.String()+"/purchase", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 200, decode[ledger.Receipt](t, resp).Balance)

	resp = c.do(http.MethodPost, "/api/vouchers/"+voucher.ID.String()+"/purchase", nil)
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp = c.do(http.MethodGet, "/api/purchases", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[api.PurchaseListResponse](t, resp).Purchases, 1)

	resp = c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[domain.User](t, resp)
	assert.Equal(t, 200, me.Coins)
	assert.Equal(t, 1, me.Streak)

	resp = c.do(http.MethodGet, "/api/exam", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	bundle := decode[assessment.Bundle](t, resp)
	assert.Equal(t, "Placement test", bundle.Config.ExamName)
	assert.WithinDuration(t, time.Now(), bundle.ServerTime, time.Minute)
}

func TestRouter_SelfServiceGrantsDisabled(t *testing.T) {
	app, _ := newTestApplication(t, func(cfg *config.Config) { cfg.Ledger.SelfServiceGrants = false })
	server := httptest.NewServer(app.setupRouter())
	defer server.Close()
	c := &client{t: t, server: server}

	register := api.RegisterRequest{Phone: "+77011234567", Password: "correct-horse", FirstName: "Aigerim"}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/auth/register", register).StatusCode)
	resp := c.do(http.MethodPost, "/api/auth/login", api.LoginRequest{Phone: register.Phone, Password: register.Password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c.token = decode[api.AuthResponse](t, resp).Token

	assert.Equal(t, http.StatusNotFound,
		c.do(http.MethodPost, "/api/me/coins", api.AwardCoinsRequest{Amount: 100000}).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		c.do(http.MethodPost, "/api/me/premium", api.GrantPremiumRequest{Months: 12}).StatusCode)

	resp = c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[domain.User](t, resp)
	assert.Zero(t, me.Coins)
	assert.False(t, me.IsPremium)
}
