package store

import (
	"context"
	"time"
)

// Cache is a read-through cache for read-mostly data such as the voucher
// catalog and the exam bundle. Values are stored as JSON.
type Cache interface {
	// GetJSON decodes the cached value for key into dest.
	// Returns ErrCacheMiss when the key is absent.
	GetJSON(ctx context.Context, key string, dest any) error

	// SetJSON stores value under key for ttl.
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// NopCache is a Cache that stores nothing. It is used when no cache is configured.
type NopCache struct{}

// GetJSON always reports a miss.
func (NopCache) GetJSON(context.Context, string, any) error { return ErrCacheMiss }

// SetJSON discards the value.
func (NopCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }

// Delete does nothing.
func (NopCache) Delete(context.Context, ...string) error { return nil }
