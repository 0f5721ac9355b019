package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
)

// RegisterRequest is the payload of POST /api/auth/register.
type RegisterRequest struct {
	Phone     string `json:"phone"      validate:"required,e164"`
	Password  string `json:"password"   validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name"  validate:"max=100"`
}

// LoginRequest is the payload of POST /api/auth/login.
type LoginRequest struct {
	Phone    string `json:"phone"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	UserID    uuid.UUID    `json:"user_id"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// AwardCoinsRequest is the payload of POST /api/me/coins.
type AwardCoinsRequest struct {
	Amount int `json:"amount" validate:"required,gt=0,lte=100000"`
}

// GrantPremiumRequest is the payload of POST /api/me/premium. Zero months
// means the configured default.
type GrantPremiumRequest struct {
	Months int `json:"months" validate:"gte=0,lte=120"`
}

// CountResponse returns a single updated counter.
type CountResponse struct {
	LearnedWords int `json:"learned_words"`
}

// BalanceResponse returns the coin balance after a mutation.
type BalanceResponse struct {
	Coins int `json:"coins"`
}

// VoucherListResponse wraps the voucher catalog.
type VoucherListResponse struct {
	Vouchers []domain.Voucher `json:"vouchers"`
}

// PurchaseListResponse wraps a purchase history.
type PurchaseListResponse struct {
	Purchases []domain.PurchaseRecord `json:"purchases"`
}
