package redis

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/lingua-api/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCommander is an in-memory commander that records the keys it is given.
type memCommander struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMemCommander() *memCommander {
	return &memCommander{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memCommander) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memCommander) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if m.setErr != nil {
		return redis.NewStatusResult("", m.setErr)
	}
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *memCommander) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

type catalogEntry struct {
	Title string `json:"title"`
	Cost  int    `json:"cost"`
}

func TestCache_RoundTrip(t *testing.T) {
	mem := newMemCommander()
	c := newCache(mem, nil, slog.Default())
	ctx := context.Background()

	var got []catalogEntry
	assert.ErrorIs(t, c.GetJSON(ctx, "vouchers:active", &got), store.ErrCacheMiss)

	want := []catalogEntry{{"Bookstore", 150}, {"Cafe", 300}}
	require.NoError(t, c.SetJSON(ctx, "vouchers:active", want, time.Minute))

	assert.Contains(t, mem.data, "lingua:vouchers:active")
	assert.Equal(t, time.Minute, mem.ttls["lingua:vouchers:active"])

	require.NoError(t, c.GetJSON(ctx, "vouchers:active", &got))
	assert.Equal(t, want, got)

	require.NoError(t, c.Delete(ctx, "vouchers:active"))
	assert.ErrorIs(t, c.GetJSON(ctx, "vouchers:active", &got), store.ErrCacheMiss)
}

func TestCache_Errors(t *testing.T) {
	ctx := context.Background()
	var dest map[string]any

	tests := []struct {
		name    string
		prepare func(m *memCommander)
		run     func(c *Cache) error
		wantErr error
	}{
		{
			name:    "empty key on get",
			run:     func(c *Cache) error { return c.GetJSON(ctx, "", &dest) },
			wantErr: ErrCacheKeyEmpty,
		},
		{
			name:    "empty key on set",
			run:     func(c *Cache) error { return c.SetJSON(ctx, "", 1, time.Second) },
			wantErr: ErrCacheKeyEmpty,
		},
		{
			name:    "negative ttl",
			run:     func(c *Cache) error { return c.SetJSON(ctx, "k", 1, -time.Second) },
			wantErr: ErrCacheInvalidTTL,
		},
		{
			name:    "unencodable value",
			run:     func(c *Cache) error { return c.SetJSON(ctx, "k", make(chan int), time.Second) },
			wantErr: ErrCacheSerialization,
		},
		{
			name:    "corrupt cached value",
			prepare: func(m *memCommander) { m.data["lingua:k"] = "{not json" },
			run:     func(c *Cache) error { return c.GetJSON(ctx, "k", &dest) },
			wantErr: ErrCacheSerialization,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mem := newMemCommander()
			if tc.prepare != nil {
				tc.prepare(mem)
			}
			err := tc.run(newCache(mem, nil, slog.Default()))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCache_BackendFailuresPassThrough(t *testing.T) {
	boom := errors.New("connection refused")
	mem := newMemCommander()
	mem.getErr = boom
	mem.setErr = boom
	c := newCache(mem, nil, slog.Default())

	var dest []int
	err := c.GetJSON(context.Background(), "k", &dest)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, store.ErrCacheMiss)

	assert.ErrorIs(t, c.SetJSON(context.Background(), "k", []int{1}, time.Second), boom)
}

func TestCache_Close(t *testing.T) {
	closed := false
	c := newCache(newMemCommander(), func() error { closed = true; return nil }, slog.Default())
	require.NoError(t, c.Close())
	assert.True(t, closed)

	assert.NoError(t, newCache(newMemCommander(), nil, slog.Default()).Close())
}

func TestNewCache_InvalidURL(t *testing.T) {
	_, err := NewCache(context.Background(), "not-a-redis-url", slog.Default())
	assert.ErrorIs(t, err, ErrCacheConnection)
}
