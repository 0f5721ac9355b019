package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrUserNotFound, ErrVoucherNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same phone).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or when a write violates a check constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrConflict is returned when a conditional write lost a race with a
	// concurrent writer (compare-and-set miss, serialization failure or
	// deadlock). The operation had no effect and may be retried.
	ErrConflict = errors.New("concurrent modification")

	// ErrTransient is returned when the database could not be reached or
	// the operation timed out. Nothing is known to have been written.
	ErrTransient = errors.New("transient storage failure")

	// ErrCacheMiss is returned by Cache implementations when a key is absent.
	ErrCacheMiss = errors.New("cache miss")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates that no user exists for the given phone or ID.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrVoucherNotFound indicates that the voucher does not exist or is inactive.
	ErrVoucherNotFound = fmt.Errorf("%w: voucher", ErrNotFound)

	// ErrExamConfigNotFound indicates that no exam has been configured.
	ErrExamConfigNotFound = fmt.Errorf("%w: exam config", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrPhoneExists indicates that a user with the given phone already exists.
	ErrPhoneExists = fmt.Errorf("%w: phone", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsRetryable reports whether err is a conflict that a caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "user", "purchase")
	Operation string // The operation that failed (e.g., "create", "debit")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
