// Package session holds the terminal client's notion of the current user.
// It pairs the HTTP client with the on-device snapshot so that the cached
// ledger is created at registration, refreshed at login, mutated by ledger
// operations and cleared at logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/api"
	"github.com/phrazzld/lingua-api/internal/client"
	"github.com/phrazzld/lingua-api/internal/client/snapshot"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/domain/exam"
	"github.com/phrazzld/lingua-api/internal/service/assessment"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
)

// ErrNotLoggedIn is returned by operations that need a current user.
var ErrNotLoggedIn = errors.New("not logged in")

// API is the subset of the HTTP client the session uses.
type API interface {
	SetToken(token string)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, phone, password string) (*api.AuthResponse, error)
	Me(ctx context.Context) (*domain.User, error)
	CreditLearnedWord(ctx context.Context) (int, error)
	AwardCoins(ctx context.Context, amount int) (int, error)
	GrantPremium(ctx context.Context, months int) (*domain.User, error)
	ListVouchers(ctx context.Context) ([]domain.Voucher, error)
	Purchase(ctx context.Context, voucherID uuid.UUID) (*ledger.Receipt, error)
	PurchaseHistory(ctx context.Context) ([]domain.PurchaseRecord, error)
	GetExam(ctx context.Context) (*assessment.Bundle, error)
}

// Store persists the session on the device.
type Store interface {
	Save(ctx context.Context, token string, user domain.User) error
	Load(ctx context.Context) (*snapshot.Snapshot, error)
	UpdateUser(ctx context.Context, user domain.User) error
	Clear(ctx context.Context) error
}

// Session is the logged-in user of the terminal client.
type Session struct {
	api    API
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	user *domain.User
}

// New creates a Session.
func New(apiClient API, store Store, logger *slog.Logger) *Session {
	if apiClient == nil {
		panic("api client cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		api:    apiClient,
		store:  store,
		logger: logger.With(slog.String("component", "client_session")),
		now:    time.Now,
	}
}

// Restore loads a previously saved session. It reports false when nobody is
// logged in on this device.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	snap, err := s.store.Load(ctx)
	if errors.Is(err, snapshot.ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to restore session: %w", err)
	}

	s.api.SetToken(snap.Token)
	s.setUser(snap.User)
	return true, nil
}

// Register creates an account and logs in as it.
func (s *Session) Register(ctx context.Context, req api.RegisterRequest) (*domain.User, error) {
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return s.start(ctx, resp)
}

// Login authenticates and refreshes the cached snapshot, including the
// streak the server evaluated for this login.
func (s *Session) Login(ctx context.Context, phone, password string) (*domain.User, error) {
	resp, err := s.api.Login(ctx, phone, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return s.start(ctx, resp)
}

func (s *Session) start(ctx context.Context, resp *api.AuthResponse) (*domain.User, error) {
	if resp.User == nil {
		return nil, fmt.Errorf("%w: auth response without user", client.ErrTransient)
	}

	s.api.SetToken(resp.Token)
	if err := s.store.Save(ctx, resp.Token, *resp.User); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.setUser(*resp.User)
	return s.User()
}

// Logout forgets the token and the cached snapshot.
func (s *Session) Logout(ctx context.Context) error {
	s.api.SetToken("")
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// User returns a copy of the cached snapshot.
func (s *Session) User() (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, ErrNotLoggedIn
	}
	u := *s.user
	return &u, nil
}

// Refresh replaces the cached snapshot with the server's.
func (s *Session) Refresh(ctx context.Context) (*domain.User, error) {
	if _, err := s.User(); err != nil {
		return nil, err
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh profile: %w", err)
	}
	s.commit(ctx, func(u *domain.User) { *u = *user })
	return s.User()
}

// LearnWord credits one learned word. When the server cannot be reached the
// previous count is returned unchanged and no error is reported.
func (s *Session) LearnWord(ctx context.Context) (int, error) {
	current, err := s.User()
	if err != nil {
		return 0, err
	}

	count, err := s.api.CreditLearnedWord(ctx)
	if errors.Is(err, client.ErrTransient) {
		s.logger.WarnContext(ctx, "learned word not recorded, keeping previous count",
			slog.Int("learned_words", current.LearnedWords),
			slog.String("error", err.Error()))
		return current.LearnedWords, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit learned word: %w", err)
	}

	s.commit(ctx, func(u *domain.User) { u.LearnedWords = count })
	return count, nil
}

// AwardCoins credits coins earned by an exercise and returns the balance.
func (s *Session) AwardCoins(ctx context.Context, amount int) (int, error) {
	if _, err := s.User(); err != nil {
		return 0, err
	}

	balance, err := s.api.AwardCoins(ctx, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to award coins: %w", err)
	}
	s.commit(ctx, func(u *domain.User) { u.Coins = balance })
	return balance, nil
}

// GrantPremium activates premium for months.
func (s *Session) GrantPremium(ctx context.Context, months int) (*domain.User, error) {
	if _, err := s.User(); err != nil {
		return nil, err
	}

	user, err := s.api.GrantPremium(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to grant premium: %w", err)
	}
	s.commit(ctx, func(u *domain.User) { *u = *user })
	return s.User()
}

// Vouchers lists the active catalog.
func (s *Session) Vouchers(ctx context.Context) ([]domain.Voucher, error) {
	if _, err := s.User(); err != nil {
		return nil, err
	}

	vouchers, err := s.api.ListVouchers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	return vouchers, nil
}

// Buy purchases a voucher and updates the cached balance.
func (s *Session) Buy(ctx context.Context, voucherID uuid.UUID) (*ledger.Receipt, error) {
	if _, err := s.User(); err != nil {
		return nil, err
	}

	receipt, err := s.api.Purchase(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("purchase failed: %w", err)
	}
	s.commit(ctx, func(u *domain.User) { u.Coins = receipt.Balance })
	return receipt, nil
}

// History lists the user's purchases.
func (s *Session) History(ctx context.Context) ([]domain.PurchaseRecord, error) {
	if _, err := s.User(); err != nil {
		return nil, err
	}

	records, err := s.api.PurchaseHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase history: %w", err)
	}
	return records, nil
}

// Exam is a prepared assessment: the state machine and the clock that drives
// it.
type Exam struct {
	Session *exam.Session
	Clock   exam.Clock
}

// Run drives the exam from ticks until it ends or ctx is done.
func (e *Exam) Run(ctx context.Context, ticks <-chan time.Time, observe func(exam.View)) exam.State {
	return exam.Run(ctx, e.Session, e.Clock, ticks, observe)
}

// RunWithTicker drives the exam once per second.
func (e *Exam) RunWithTicker(ctx context.Context, observe func(exam.View)) exam.State {
	return exam.RunWithTicker(ctx, e.Session, e.Clock, observe)
}

// PrepareExam fetches the exam and loads it into a new session. A fetch
// failure leaves the session errored; it is not retried. The returned clock
// follows the server's time.
func (s *Session) PrepareExam(ctx context.Context) (*Exam, error) {
	if _, err := s.User(); err != nil {
		return nil, err
	}

	es := exam.NewSession()
	local := exam.SystemClock{}

	bundle, err := s.api.GetExam(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch exam", slog.String("error", err.Error()))
		_ = es.Fail(fmt.Errorf("failed to load exam: %w", err))
		return &Exam{Session: es, Clock: local}, nil
	}

	received := s.now()
	if err := es.Load(bundle.Config, bundle.Questions); err != nil {
		s.logger.WarnContext(ctx, "invalid exam config", slog.String("error", err.Error()))
		return &Exam{Session: es, Clock: local}, nil
	}

	clock := exam.NewServerClock(local, bundle.ServerTime, received)
	s.logger.DebugContext(ctx, "exam loaded",
		slog.Int("questions", len(bundle.Questions)),
		slog.Duration("clock_offset", clock.Offset))
	return &Exam{Session: es, Clock: clock}, nil
}

func (s *Session) setUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// commit applies mutate to the cached user and writes it through to the
// device. A failed local write is logged; the server already holds the truth.
func (s *Session) commit(ctx context.Context, mutate func(*domain.User)) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return
	}
	mutate(s.user)
	u := *s.user
	s.mu.Unlock()

	if err := s.store.UpdateUser(ctx, u); err != nil {
		s.logger.WarnContext(ctx, "failed to update local snapshot", slog.String("error", err.Error()))
	}
}
