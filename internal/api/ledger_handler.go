package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/lingua-api/internal/api/shared"
	"github.com/phrazzld/lingua-api/internal/platform/logger"
	"github.com/phrazzld/lingua-api/internal/redact"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
)

// LedgerHandler serves the authenticated user's ledger, the voucher catalog
// and purchases.
type LedgerHandler struct {
	ledger ledger.Service
	logger *slog.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerService ledger.Service, logger *slog.Logger) *LedgerHandler {
	if ledgerService == nil {
		panic("ledgerService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHandler{
		ledger: ledgerService,
		logger: logger.With(slog.String("component", "ledger_handler")),
	}
}

// Me handles GET /api/me.
func (h *LedgerHandler) Me(w http.ResponseWriter, r *http.Request) {
	phone, ok := requirePhone(w, r)
	if !ok {
		return
	}

	user, err := h.ledger.Snapshot(r.Context(), phone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load profile")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// CreditLearnedWord handles POST /api/me/learned-words.
func (h *LedgerHandler) CreditLearnedWord(w http.ResponseWriter, r *http.Request) {
	phone, ok := requirePhone(w, r)
	if !ok {
		return
	}

	count, err := h.ledger.CreditLearnedWord(r.Context(), phone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record learned word")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CountResponse{LearnedWords: count})
}

// AwardCoins handles POST /api/me/coins.
func (h *LedgerHandler) AwardCoins(w http.ResponseWriter, r *http.Request) {
	phone, ok := requirePhone(w, r)
	if !ok {
		return
	}

	var req AwardCoinsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	balance, err := h.ledger.AwardCoins(r.Context(), phone, req.Amount)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to award coins")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, BalanceResponse{Coins: balance})
}

// GrantPremium handles POST /api/me/premium.
func (h *LedgerHandler) GrantPremium(w http.ResponseWriter, r *http.Request) {
	phone, ok := requirePhone(w, r)
	if !ok {
		return
	}

	var req GrantPremiumRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.ledger.GrantPremium(r.Context(), phone, req.Months)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to grant premium")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// ListVouchers handles GET /api/vouchers.
func (h *LedgerHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.ledger.ListVouchers(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load vouchers")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, VoucherListResponse{Vouchers: vouchers})
}

// Purchase handles POST /api/vouchers/{id}/purchase.
func (h *LedgerHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	phone, ok := requirePhone(w, r)
	if !ok {
		return
	}

	voucherID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	receipt, err := h.ledger.Purchase(r.Context(), phone, voucherID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete purchase")
		return
	}

	log.Debug("voucher purchased",
		slog.String("phone", redact.Phone(phone)),
		slog.String("purchase_id", receipt.Record.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, receipt)
}

// PurchaseHistory handles GET /api/purchases.
func (h *LedgerHandler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	phone, ok := requirePhone(w, r)
	if !ok {
		return
	}

	history, err := h.ledger.PurchaseHistory(r.Context(), phone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load purchases")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PurchaseListResponse{Purchases: history})
}
