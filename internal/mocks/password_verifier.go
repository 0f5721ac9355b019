package mocks

import (
	"sync"

	"github.com/phrazzld/lingua-api/internal/service/auth"
)

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
// With CompareFn unset it returns Err for every comparison.
type MockPasswordVerifier struct {
	CompareFn func(hashedPassword, password string) error
	Err       error

	mu    sync.Mutex
	calls []PasswordComparison
}

// PasswordComparison records one Compare call.
type PasswordComparison struct {
	HashedPassword string
	Password       string
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

// Compare implements auth.PasswordVerifier.
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.mu.Lock()
	m.calls = append(m.calls, PasswordComparison{HashedPassword: hashedPassword, Password: password})
	m.mu.Unlock()

	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	return m.Err
}

// Calls returns the comparisons made so far.
func (m *MockPasswordVerifier) Calls() []PasswordComparison {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PasswordComparison(nil), m.calls...)
}
