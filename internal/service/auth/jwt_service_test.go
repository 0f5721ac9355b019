package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
	testPhone   = "+77011234567"
)

func testService(t *testing.T, secret string, now time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newJWTService(config.AuthConfig{
		JWTSecret:            secret,
		TokenLifetimeMinutes: 60,
	}, func() time.Time { return now })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.ErrorContains(t, err, "at least 32 characters")

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	assert.ErrorContains(t, err, "lifetime")

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 15})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, svc.TokenLifetime())
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	svc := testService(t, testSecret, fixedTime)

	token, err := svc.GenerateToken(context.Background(), userID, testPhone)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, testPhone, claims.Phone)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	signRaw := func(t *testing.T, claims jwtCustomClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name    string
		setup   func(t *testing.T) (JWTService, string)
		wantErr error
	}{
		{
			name: "valid token",
			setup: func(t *testing.T) (JWTService, string) {
				svc := testService(t, testSecret, fixedTime)
				token, _ := svc.GenerateToken(context.Background(), userID, testPhone)
				return svc, token
			},
		},
		{
			name: "expired token",
			setup: func(t *testing.T) (JWTService, string) {
				token, _ := testService(t, testSecret, fixedTime).
					GenerateToken(context.Background(), userID, testPhone)
				return testService(t, testSecret, fixedTime.Add(2*time.Hour)), token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "within clock skew",
			setup: func(t *testing.T) (JWTService, string) {
				token, _ := testService(t, testSecret, fixedTime).
					GenerateToken(context.Background(), userID, testPhone)
				return testService(t, testSecret, fixedTime.Add(time.Hour+time.Minute)), token
			},
		},
		{
			name: "invalid signature",
			setup: func(t *testing.T) (JWTService, string) {
				token, _ := testService(t, testSecret, fixedTime).
					GenerateToken(context.Background(), userID, testPhone)
				return testService(t, wrongSecret, fixedTime), token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setup: func(t *testing.T) (JWTService, string) {
				return testService(t, testSecret, fixedTime), "this.is.not.a.valid.jwt.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong token type",
			setup: func(t *testing.T) (JWTService, string) {
				return testService(t, testSecret, fixedTime), signRaw(t, jwtCustomClaims{
					UserID:    userID,
					Phone:     testPhone,
					TokenType: "refresh",
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				})
			},
			wantErr: ErrWrongTokenType,
		},
		{
			name: "missing phone",
			setup: func(t *testing.T) (JWTService, string) {
				return testService(t, testSecret, fixedTime), signRaw(t, jwtCustomClaims{
					UserID:    userID,
					TokenType: accessTokenType,
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
					},
				})
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tt.setup(t)
			claims, err := svc.ValidateToken(context.Background(), token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, testPhone, claims.Phone)
		})
	}
}

func TestBcryptVerifier(t *testing.T) {
	v := NewBcryptVerifier()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, v.Compare(string(hash), "password123"))
	err = v.Compare(string(hash), "password124")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	assert.ErrorIs(t, err, bcrypt.ErrMismatchedHashAndPassword)

	assert.ErrorIs(t, v.Compare("not-a-bcrypt-hash", "password123"), ErrInvalidPassword)
}
