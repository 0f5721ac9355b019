package shared

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	assert.Len(t, id, 2*TraceIDLength)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 42)))
}

func TestGenerateTraceID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := generateTraceID()
		assert.False(t, seen[id], "duplicate trace ID %s", id)
		seen[id] = true
	}
}

func TestFallbackTraceID(t *testing.T) {
	id := fallbackTraceID()
	assert.Len(t, id, 2*TraceIDLength)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()
	_, ok := GetPhone(ctx)
	assert.False(t, ok)
	_, ok = GetUserID(ctx)
	assert.False(t, ok)

	userID := uuid.New()
	ctx = WithIdentity(ctx, userID, "+15550001111")

	phone, ok := GetPhone(ctx)
	assert.True(t, ok)
	assert.Equal(t, "+15550001111", phone)

	gotID, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, userID, gotID)

	_, ok = GetPhone(WithIdentity(context.Background(), userID, ""))
	assert.False(t, ok)
	_, ok = GetUserID(WithIdentity(context.Background(), uuid.Nil, "+15550001111"))
	assert.False(t, ok)
}
