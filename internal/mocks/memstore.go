package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// MemStore keeps users, vouchers, purchases and the exam in memory.
// RunInTx serializes transactions and restores the previous state when the
// transaction function fails or panics.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users     map[string]domain.User
	vouchers  map[uuid.UUID]domain.Voucher
	purchases []domain.PurchaseRecord
	exam      *domain.ExamConfig
	questions []domain.Question

	// Commits and Rollbacks count finished transactions.
	Commits   int
	Rollbacks int

	// inflight is the rollback state of the open transaction, if any.
	inflight *memSnapshot

	userView     *MemUserStore
	voucherView  *MemVoucherStore
	purchaseView *MemPurchaseStore
	examView     *MemExamStore
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	m := &MemStore{
		users:    make(map[string]domain.User),
		vouchers: make(map[uuid.UUID]domain.Voucher),
	}
	m.userView = &MemUserStore{mem: m}
	m.voucherView = &MemVoucherStore{mem: m}
	m.purchaseView = &MemPurchaseStore{mem: m}
	m.examView = &MemExamStore{mem: m}
	return m
}

// Ensure MemStore implements store.Transactor
var _ store.Transactor = (*MemStore)(nil)

// Users returns the store.UserStore view.
func (m *MemStore) Users() *MemUserStore { return m.userView }

// Vouchers returns the store.VoucherStore view.
func (m *MemStore) Vouchers() *MemVoucherStore { return m.voucherView }

// Purchases returns the store.PurchaseStore view.
func (m *MemStore) Purchases() *MemPurchaseStore { return m.purchaseView }

// Exam returns the store.ExamStore view.
func (m *MemStore) Exam() *MemExamStore { return m.examView }

// PutUser inserts or replaces a user keyed by phone.
func (m *MemStore) PutUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Phone] = u
}

// User returns a copy of the stored user.
func (m *MemStore) User(phone string) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[phone]
	return u, ok
}

// PutVoucher inserts or replaces a voucher.
func (m *MemStore) PutVoucher(v domain.Voucher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vouchers[v.ID] = v
}

// SetExam configures the exam and its questions.
func (m *MemStore) SetExam(cfg *domain.ExamConfig, questions []domain.Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exam = cfg
	m.questions = slices.Clone(questions)
}

// PurchaseRecords returns a copy of all purchase records in insertion order.
func (m *MemStore) PurchaseRecords() []domain.PurchaseRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.purchases)
}

type memSnapshot struct {
	users     map[string]domain.User
	purchases []domain.PurchaseRecord
}

func (m *MemStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[string]domain.User, len(m.users))
	for k, v := range m.users {
		users[k] = v
	}
	return memSnapshot{users: users, purchases: slices.Clone(m.purchases)}
}

func (m *MemStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = s.users
	m.purchases = s.purchases
	m.inflight = nil
	m.Rollbacks++
}

// RunInTx implements store.Transactor. The *sql.Tx passed to fn is nil;
// the MemStore views ignore it in WithTx.
func (m *MemStore) RunInTx(ctx context.Context, fn store.TxFn) (err error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	m.mu.Lock()
	m.inflight = &snap
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inflight = nil
		m.mu.Unlock()
	}()
	defer func() {
		if p := recover(); p != nil {
			m.restore(snap)
			panic(p)
		}
	}()

	if err = fn(ctx, nil); err != nil {
		m.restore(snap)
		return err
	}

	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	return nil
}

// CommitConcurrent applies fn to the user as a write committed by another
// connection. Unlike writes made through the store views it survives the
// rollback of a transaction that is open at the time, so a test can change
// the balance between a transaction's read and its compare-and-set.
func (m *MemStore) CommitConcurrent(phone string, fn func(u *domain.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[phone]; ok {
		fn(&u)
		m.users[phone] = u
	}
	if m.inflight != nil {
		if u, ok := m.inflight.users[phone]; ok {
			fn(&u)
			m.inflight.users[phone] = u
		}
	}
}

// MemUserStore is the store.UserStore view of a MemStore.
type MemUserStore struct {
	mem *MemStore

	GetByPhoneFn            func(ctx context.Context, phone string) (*domain.User, error)
	UpdateLoginFn           func(ctx context.Context, phone string, streak int, lastLogin time.Time) error
	IncrementLearnedWordsFn func(ctx context.Context, phone string) (int, error)
	DebitCoinsFn            func(ctx context.Context, phone string, amount, observed int) (int, error)
	SetPremiumFn            func(ctx context.Context, phone string, until time.Time) error
}

var _ store.UserStore = (*MemUserStore)(nil)

// WithTx implements store.UserStore.
func (s *MemUserStore) WithTx(*sql.Tx) store.UserStore { return s }

// Create implements store.UserStore. The password is hashed with bcrypt.MinCost.
func (s *MemUserStore) Create(_ context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if user.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.MinCost)
		if err != nil {
			return err
		}
		user.HashedPassword = string(hash)
		user.Password = ""
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	if _, exists := s.mem.users[user.Phone]; exists {
		return store.ErrPhoneExists
	}
	s.mem.users[user.Phone] = *user
	return nil
}

// GetByID implements store.UserStore.
func (s *MemUserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	for _, u := range s.mem.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// GetByPhone implements store.UserStore.
func (s *MemUserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if s.GetByPhoneFn != nil {
		return s.GetByPhoneFn(ctx, phone)
	}
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	u, ok := s.mem.users[phone]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

// UpdateLogin implements store.UserStore.
func (s *MemUserStore) UpdateLogin(ctx context.Context, phone string, streak int, lastLogin time.Time) error {
	if s.UpdateLoginFn != nil {
		return s.UpdateLoginFn(ctx, phone, streak, lastLogin)
	}
	return s.mem.update(phone, func(u *domain.User) error {
		u.Streak = streak
		u.LastLogin = &lastLogin
		return nil
	})
}

// IncrementLearnedWords implements store.UserStore.
func (s *MemUserStore) IncrementLearnedWords(ctx context.Context, phone string) (int, error) {
	if s.IncrementLearnedWordsFn != nil {
		return s.IncrementLearnedWordsFn(ctx, phone)
	}
	var count int
	err := s.mem.update(phone, func(u *domain.User) error {
		u.LearnedWords++
		count = u.LearnedWords
		return nil
	})
	return count, err
}

// SetPremium implements store.UserStore.
func (s *MemUserStore) SetPremium(ctx context.Context, phone string, until time.Time) error {
	if s.SetPremiumFn != nil {
		return s.SetPremiumFn(ctx, phone, until)
	}
	return s.mem.update(phone, func(u *domain.User) error {
		u.IsPremium = true
		u.PremiumUntil = &until
		return nil
	})
}

// DebitCoins implements store.UserStore with the same compare-and-set
// semantics as the SQL implementation.
func (s *MemUserStore) DebitCoins(ctx context.Context, phone string, amount, observed int) (int, error) {
	if s.DebitCoinsFn != nil {
		return s.DebitCoinsFn(ctx, phone, amount, observed)
	}
	return s.Debit(phone, amount, observed)
}

// Debit is the default DebitCoins behavior, callable from DebitCoinsFn.
func (s *MemUserStore) Debit(phone string, amount, observed int) (int, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	u, ok := s.mem.users[phone]
	if !ok || u.Coins != observed {
		return 0, store.ErrConflict
	}
	if u.Coins-amount < 0 {
		return 0, fmt.Errorf("%w: users_coins_non_negative", store.ErrInvalidEntity)
	}
	u.Coins -= amount
	s.mem.users[phone] = u
	return u.Coins, nil
}

// CreditCoins implements store.UserStore.
func (s *MemUserStore) CreditCoins(_ context.Context, phone string, amount int) (int, error) {
	var balance int
	err := s.mem.update(phone, func(u *domain.User) error {
		u.Coins += amount
		balance = u.Coins
		return nil
	})
	return balance, err
}

func (m *MemStore) update(phone string, fn func(u *domain.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[phone]
	if !ok {
		return store.ErrUserNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[phone] = u
	return nil
}

// MemVoucherStore is the store.VoucherStore view of a MemStore.
type MemVoucherStore struct {
	mem *MemStore

	ListActiveFn func(ctx context.Context) ([]domain.Voucher, error)
	// ListActiveCalls counts ListActive invocations.
	ListActiveCalls int
}

var _ store.VoucherStore = (*MemVoucherStore)(nil)

// WithTx implements store.VoucherStore.
func (s *MemVoucherStore) WithTx(*sql.Tx) store.VoucherStore { return s }

// ListActive implements store.VoucherStore.
func (s *MemVoucherStore) ListActive(ctx context.Context) ([]domain.Voucher, error) {
	s.mem.mu.Lock()
	s.ListActiveCalls++
	s.mem.mu.Unlock()

	if s.ListActiveFn != nil {
		return s.ListActiveFn(ctx)
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	out := make([]domain.Voucher, 0, len(s.mem.vouchers))
	for _, v := range s.mem.vouchers {
		if v.IsActive {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b domain.Voucher) int {
		if a.CostCoins != b.CostCoins {
			return a.CostCoins - b.CostCoins
		}
		if a.Title < b.Title {
			return -1
		}
		if a.Title > b.Title {
			return 1
		}
		return 0
	})
	return out, nil
}

// GetActiveByID implements store.VoucherStore.
func (s *MemVoucherStore) GetActiveByID(_ context.Context, id uuid.UUID) (*domain.Voucher, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	v, ok := s.mem.vouchers[id]
	if !ok || !v.IsActive {
		return nil, store.ErrVoucherNotFound
	}
	return &v, nil
}

// MemPurchaseStore is the store.PurchaseStore view of a MemStore.
type MemPurchaseStore struct {
	mem *MemStore

	CreateFn      func(ctx context.Context, record *domain.PurchaseRecord) error
	ListByPhoneFn func(ctx context.Context, phone string) ([]domain.PurchaseRecord, error)
}

var _ store.PurchaseStore = (*MemPurchaseStore)(nil)

// WithTx implements store.PurchaseStore.
func (s *MemPurchaseStore) WithTx(*sql.Tx) store.PurchaseStore { return s }

// Create implements store.PurchaseStore.
func (s *MemPurchaseStore) Create(ctx context.Context, record *domain.PurchaseRecord) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, record)
	}
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	if _, ok := s.mem.users[record.UserPhone]; !ok {
		return fmt.Errorf("%w: unknown user", store.ErrInvalidEntity)
	}
	if _, ok := s.mem.vouchers[record.VoucherID]; !ok {
		return fmt.Errorf("%w: unknown voucher", store.ErrInvalidEntity)
	}
	s.mem.purchases = append(s.mem.purchases, *record)
	return nil
}

// ListByPhone implements store.PurchaseStore.
func (s *MemPurchaseStore) ListByPhone(ctx context.Context, phone string) ([]domain.PurchaseRecord, error) {
	if s.ListByPhoneFn != nil {
		return s.ListByPhoneFn(ctx, phone)
	}
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	out := make([]domain.PurchaseRecord, 0)
	for i := len(s.mem.purchases) - 1; i >= 0; i-- {
		if s.mem.purchases[i].UserPhone == phone {
			out = append(out, s.mem.purchases[i])
		}
	}
	return out, nil
}

// MemExamStore is the store.ExamStore view of a MemStore.
type MemExamStore struct {
	mem *MemStore

	GetConfigFn     func(ctx context.Context) (*domain.ExamConfig, error)
	ListQuestionsFn func(ctx context.Context) ([]domain.Question, error)
}

var _ store.ExamStore = (*MemExamStore)(nil)

// GetConfig implements store.ExamStore.
func (s *MemExamStore) GetConfig(ctx context.Context) (*domain.ExamConfig, error) {
	if s.GetConfigFn != nil {
		return s.GetConfigFn(ctx)
	}
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	if s.mem.exam == nil {
		return nil, store.ErrExamConfigNotFound
	}
	cfg := *s.mem.exam
	return &cfg, nil
}

// ListQuestions implements store.ExamStore.
func (s *MemExamStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	if s.ListQuestionsFn != nil {
		return s.ListQuestionsFn(ctx)
	}
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	out := slices.Clone(s.mem.questions)
	slices.SortFunc(out, func(a, b domain.Question) int { return a.Number - b.Number })
	if out == nil {
		out = []domain.Question{}
	}
	return out, nil
}
