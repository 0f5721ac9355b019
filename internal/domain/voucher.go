package domain

import (
	"time"

	"github.com/google/uuid"
)

// Voucher is a purchasable discount entitlement redeemable outside the app.
// Vouchers are managed by operators; clients only list and buy them.
type Voucher struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	CostCoins       int       `json:"cost_coins"`
	DiscountPercent int       `json:"discount_percent"`
	IsActive        bool      `json:"is_active"`
}

// PurchaseRecord documents one committed voucher purchase.
// It is written in the same transaction as the coin debit and never changes.
type PurchaseRecord struct {
	ID          uuid.UUID `json:"id"`
	UserPhone   string    `json:"user_phone"`
	VoucherID   uuid.UUID `json:"voucher_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}

// NewPurchaseRecord creates a record for phone buying voucherID at now.
func NewPurchaseRecord(phone string, voucherID uuid.UUID, now time.Time) *PurchaseRecord {
	return &PurchaseRecord{
		ID:          uuid.New(),
		UserPhone:   phone,
		VoucherID:   voucherID,
		PurchasedAt: now.UTC(),
	}
}
