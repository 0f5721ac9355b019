// Package client is the HTTP client for the lingua API used by the terminal
// client. Transport failures and 5xx responses are reported as ErrTransient;
// other error statuses map to sentinels callers can match with errors.Is.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/api"
	"github.com/phrazzld/lingua-api/internal/api/shared"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/service/assessment"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
)

// Client errors
var (
	// ErrTransient indicates the request may have failed in transit or the
	// server was unavailable. Nothing is known to have changed on the server.
	ErrTransient = errors.New("server unreachable")

	// ErrUnauthorized indicates missing, expired or rejected credentials.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate registration or a lost balance race.
	ErrConflict = errors.New("conflict")
)

// APIError is a non-2xx response. It unwraps to the sentinel for its status.
type APIError struct {
	Status  int
	Message string
	TraceID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.TraceID != "" {
		return fmt.Sprintf("%s (status %d, trace %s)", e.Message, e.Status, e.TraceID)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap maps the status code to a sentinel error.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusPaymentRequired:
		return domain.ErrInsufficientFunds
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusBadRequest:
		return domain.ErrValidation
	case e.Status >= http.StatusInternalServerError:
		return ErrTransient
	default:
		return nil
	}
}

// Client calls the lingua API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a Client for baseURL. A non-positive timeout defaults to 10s.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: u, http: &http.Client{Timeout: timeout}}, nil
}

// SetToken sets the bearer token sent with authenticated requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Register creates an account. The returned token is not stored; callers
// decide whether to keep it.
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and returns a token with the ledger snapshot.
func (c *Client) Login(ctx context.Context, phone, password string) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	req := api.LoginRequest{Phone: phone, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the current ledger snapshot.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreditLearnedWord adds one learned word and returns the new count.
func (c *Client) CreditLearnedWord(ctx context.Context) (int, error) {
	var resp api.CountResponse
	if err := c.do(ctx, http.MethodPost, "/api/me/learned-words", nil, &resp); err != nil {
		return 0, err
	}
	return resp.LearnedWords, nil
}

// AwardCoins credits coins and returns the new balance.
func (c *Client) AwardCoins(ctx context.Context, amount int) (int, error) {
	var resp api.BalanceResponse
	if err := c.do(ctx, http.MethodPost, "/api/me/coins", api.AwardCoinsRequest{Amount: amount}, &resp); err != nil {
		return 0, err
	}
	return resp.Coins, nil
}

// GrantPremium activates premium and returns the updated snapshot.
func (c *Client) GrantPremium(ctx context.Context, months int) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodPost, "/api/me/premium", api.GrantPremiumRequest{Months: months}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListVouchers returns the active voucher catalog.
func (c *Client) ListVouchers(ctx context.Context) ([]domain.Voucher, error) {
	var resp api.VoucherListResponse
	if err := c.do(ctx, http.MethodGet, "/api/vouchers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Vouchers, nil
}

// Purchase buys a voucher.
func (c *Client) Purchase(ctx context.Context, voucherID uuid.UUID) (*ledger.Receipt, error) {
	var receipt ledger.Receipt
	if err := c.do(ctx, http.MethodPost, "/api/vouchers/"+voucherID.String()+"/purchase", nil, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// PurchaseHistory returns the user's purchases, newest first.
func (c *Client) PurchaseHistory(ctx context.Context) ([]domain.PurchaseRecord, error) {
	var resp api.PurchaseListResponse
	if err := c.do(ctx, http.MethodGet, "/api/purchases", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Purchases, nil
}

// GetExam fetches the exam bundle with the server's clock.
func (c *Client) GetExam(ctx context.Context) (*assessment.Bundle, error) {
	var bundle assessment.Bundle
	if err := c.do(ctx, http.MethodGet, "/api/exam", nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransient, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", ErrTransient, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body shared.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.TraceID = body.TraceID
	}
	return apiErr
}
