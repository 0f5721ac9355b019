package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/domain/streak"
	"github.com/phrazzld/lingua-api/internal/platform/logger"
	"github.com/phrazzld/lingua-api/internal/redact"
	"github.com/phrazzld/lingua-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// activeVouchersKey is the cache key for the active voucher catalog.
const activeVouchersKey = "vouchers:active"

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// serviceImpl implements the Service interface.
type serviceImpl struct {
	tx        store.Transactor
	users     store.UserStore
	vouchers  store.VoucherStore
	purchases store.PurchaseStore
	cache     store.Cache
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a new ledger Service.
// A nil cache disables catalog caching. Zero-valued Config fields fall back
// to DefaultConfig.
func NewService(
	tx store.Transactor,
	users store.UserStore,
	vouchers store.VoucherStore,
	purchases store.PurchaseStore,
	cache store.Cache,
	cfg Config,
	logger *slog.Logger,
) Service {
	if tx == nil {
		panic("tx cannot be nil")
	}
	if users == nil {
		panic("users cannot be nil")
	}
	if vouchers == nil {
		panic("vouchers cannot be nil")
	}
	if purchases == nil {
		panic("purchases cannot be nil")
	}
	if cache == nil {
		cache = store.NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultConfig()
	if cfg.MaxConflictRetries < 0 {
		cfg.MaxConflictRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Millisecond
	}
	if cfg.PremiumMonths <= 0 {
		cfg.PremiumMonths = defaults.PremiumMonths
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}

	return &serviceImpl{
		tx:        tx,
		users:     users,
		vouchers:  vouchers,
		purchases: purchases,
		cache:     cache,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "ledger_service")),
	}
}

// RecordLogin implements Service.RecordLogin.
func (s *serviceImpl) RecordLogin(ctx context.Context, phone string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("phone", redact.Phone(phone)))

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load user for login: %w", err)
	}

	result := streak.Evaluate(s.cfg.Now(), user.LastLogin, user.Streak)
	if !result.Changed {
		log.Debug("streak unchanged", slog.Int("streak", user.Streak))
		return user, nil
	}

	if err := s.users.UpdateLogin(ctx, phone, result.Streak, result.LastLogin); err != nil {
		log.Warn("failed to persist streak, keeping previous snapshot",
			slog.Int("streak", user.Streak),
			slog.Int("evaluated_streak", result.Streak),
			slog.String("error", redact.Error(err)))
		return user, nil
	}

	lastLogin := result.LastLogin
	user.Streak = result.Streak
	user.LastLogin = &lastLogin

	log.Info("login recorded", slog.Int("streak", user.Streak))
	return user, nil
}

// Snapshot implements Service.Snapshot.
func (s *serviceImpl) Snapshot(ctx context.Context, phone string) (*domain.User, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.IsPremium && !user.HasPremium(s.cfg.Now()) {
		user.IsPremium = false
	}
	return user, nil
}

// CreditLearnedWord implements Service.CreditLearnedWord.
func (s *serviceImpl) CreditLearnedWord(ctx context.Context, phone string) (int, error) {
	count, err := s.users.IncrementLearnedWords(ctx, phone)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to credit learned word",
			slog.String("phone", redact.Phone(phone)),
			slog.String("error", redact.Error(err)))
		return 0, fmt.Errorf("failed to credit learned word: %w", err)
	}
	return count, nil
}

// AwardCoins implements Service.AwardCoins.
func (s *serviceImpl) AwardCoins(ctx context.Context, phone string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidAmount)
	}

	balance, err := s.users.CreditCoins(ctx, phone, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to award coins: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("coins awarded",
		slog.String("phone", redact.Phone(phone)),
		slog.Int("amount", amount),
		slog.Int("balance", balance))
	return balance, nil
}

// DebitCoins implements Service.DebitCoins.
func (s *serviceImpl) DebitCoins(ctx context.Context, phone string, amount int) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidAmount)
	}

	var balance int
	err := s.retryOnConflict(ctx, "debit", func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			users := s.users.WithTx(tx)
			user, err := users.GetByPhone(ctx, phone)
			if err != nil {
				return fmt.Errorf("failed to load balance: %w", err)
			}
			if !user.CanAfford(amount) {
				return domain.ErrInsufficientFunds
			}
			balance, err = users.DebitCoins(ctx, phone, amount, user.Coins)
			if err != nil {
				return fmt.Errorf("failed to debit coins: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// GrantPremium implements Service.GrantPremium.
// The expiry is set to now plus months; an existing entitlement is replaced,
// not extended.
func (s *serviceImpl) GrantPremium(ctx context.Context, phone string, months int) (*domain.User, error) {
	if months <= 0 {
		months = s.cfg.PremiumMonths
	}
	until := s.cfg.Now().UTC().AddDate(0, months, 0)

	var user *domain.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)
		if err := users.SetPremium(ctx, phone, until); err != nil {
			return fmt.Errorf("failed to grant premium: %w", err)
		}
		var err error
		user, err = users.GetByPhone(ctx, phone)
		if err != nil {
			return fmt.Errorf("failed to reload user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("premium granted",
		slog.String("phone", redact.Phone(phone)),
		slog.Int("months", months),
		slog.Time("premium_until", until))
	return user, nil
}

// ListVouchers implements Service.ListVouchers.
// The catalog is read through the cache; cache failures fall back to the store.
func (s *serviceImpl) ListVouchers(ctx context.Context) ([]domain.Voucher, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var cached []domain.Voucher
	err := s.cache.GetJSON(ctx, activeVouchersKey, &cached)
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, store.ErrCacheMiss):
		log.Warn("voucher cache read failed", slog.String("error", redact.Error(err)))
	}

	vouchers, err := s.vouchers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}

	if err := s.cache.SetJSON(ctx, activeVouchersKey, vouchers, s.cfg.CacheTTL); err != nil {
		log.Warn("voucher cache write failed", slog.String("error", redact.Error(err)))
	}
	return vouchers, nil
}

// Purchase implements Service.Purchase.
//
// Inside one transaction it reads the voucher and the balance, debits with
// a compare-and-set on the observed balance and inserts the purchase record.
// A failed step rolls back every earlier one. If a concurrent writer changed
// the balance the CAS matches no row, the transaction rolls back with
// store.ErrConflict and the whole transaction is retried against the fresh
// balance, at most MaxConflictRetries times.
func (s *serviceImpl) Purchase(ctx context.Context, phone string, voucherID uuid.UUID) (*Receipt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("phone", redact.Phone(phone)),
		slog.String("voucher_id", voucherID.String()),
	)

	var receipt *Receipt
	err := s.retryOnConflict(ctx, "purchase", func(ctx context.Context) error {
		return s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
			voucher, err := s.vouchers.WithTx(tx).GetActiveByID(ctx, voucherID)
			if err != nil {
				return fmt.Errorf("failed to load voucher: %w", err)
			}

			users := s.users.WithTx(tx)
			user, err := users.GetByPhone(ctx, phone)
			if err != nil {
				return fmt.Errorf("failed to load balance: %w", err)
			}
			if !user.CanAfford(voucher.CostCoins) {
				return domain.ErrInsufficientFunds
			}

			balance, err := users.DebitCoins(ctx, phone, voucher.CostCoins, user.Coins)
			if err != nil {
				return fmt.Errorf("failed to debit coins: %w", err)
			}

			record := domain.NewPurchaseRecord(phone, voucher.ID, s.cfg.Now())
			if err := s.purchases.WithTx(tx).Create(ctx, record); err != nil {
				return fmt.Errorf("failed to record purchase: %w", err)
			}

			receipt = &Receipt{Record: *record, Voucher: *voucher, Balance: balance}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			log.Info("purchase declined: insufficient funds")
		} else {
			log.Warn("purchase failed", slog.String("error", redact.Error(err)))
		}
		return nil, err
	}

	log.Info("purchase committed",
		slog.String("purchase_id", receipt.Record.ID.String()),
		slog.Int("balance", receipt.Balance))

	history, err := s.purchases.ListByPhone(ctx, phone)
	if err != nil {
		log.Warn("failed to load purchase history after commit", slog.String("error", redact.Error(err)))
		receipt.History = []domain.PurchaseRecord{receipt.Record}
		return receipt, nil
	}
	receipt.History = history
	return receipt, nil
}

// PurchaseHistory implements Service.PurchaseHistory.
func (s *serviceImpl) PurchaseHistory(ctx context.Context, phone string) ([]domain.PurchaseRecord, error) {
	if _, err := s.users.GetByPhone(ctx, phone); err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	records, err := s.purchases.ListByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return records, nil
}

// retryOnConflict runs fn until it succeeds, fails with an error other than
// store.ErrConflict, or the retry budget is spent.
func (s *serviceImpl) retryOnConflict(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	backoff := retry.WithMaxRetries(
		uint64(s.cfg.MaxConflictRetries),
		retry.NewConstant(s.cfg.RetryBackoff),
	)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if store.IsRetryable(err) {
			log.Debug("balance conflict, retrying",
				slog.String("operation", op),
				slog.Int("attempt", attempt))
			return retry.RetryableError(err)
		}
		return err
	})
}
