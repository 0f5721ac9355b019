package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyPhone          = errors.New("phone cannot be empty")
	ErrEmptyFirstName      = errors.New("first name cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrNegativeCoins       = errors.New("coins cannot be negative")
	ErrNegativeStreak      = errors.New("streak cannot be negative")
	ErrNegativeLearnedWord = errors.New("learned words cannot be negative")
)

// User represents a learner together with their progression and commerce
// ledger: streak, learned-word count, coin balance and premium entitlement.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Phone          string     `json:"phone"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Coins          int        `json:"coins"`
	IsPremium      bool       `json:"is_premium"`
	PremiumUntil   *time.Time `json:"premium_until,omitempty"`
	Streak         int        `json:"streak"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	LearnedWords   int        `json:"learned_words"`
	Password       string     `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewUser creates a new User with a zeroed ledger.
// The caller is responsible for hashing the password before storing the user.
func NewUser(phone, password, firstName, lastName string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Phone:     phone,
		FirstName: firstName,
		LastName:  lastName,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if u.Phone == "" {
		return ErrEmptyPhone
	}

	if !ValidPhone(u.Phone) {
		return fmt.Errorf("%w: %s", ErrInvalidPhone, u.Phone)
	}

	if u.FirstName == "" {
		return ErrEmptyFirstName
	}

	if u.Password != "" {
		if len(u.Password) < 8 {
			return ErrPasswordTooShort
		}
		if len(u.Password) > 72 {
			return ErrPasswordTooLong
		}
	} else if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	if u.Coins < 0 {
		return ErrNegativeCoins
	}
	if u.Streak < 0 {
		return ErrNegativeStreak
	}
	if u.LearnedWords < 0 {
		return ErrNegativeLearnedWord
	}

	return nil
}

// HasPremium reports whether the premium entitlement is active at now.
// A premium flag whose expiry has passed no longer counts.
func (u *User) HasPremium(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	if u.PremiumUntil == nil {
		return true
	}
	return now.Before(*u.PremiumUntil)
}

// CanAfford reports whether the balance covers cost.
func (u *User) CanAfford(cost int) bool {
	return u.Coins >= cost
}

// ValidPhone accepts an optional leading '+' followed by 7 to 15 digits.
func ValidPhone(phone string) bool {
	digits := phone
	if len(digits) > 0 && digits[0] == '+' {
		digits = digits[1:]
	}
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
