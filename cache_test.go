package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) *ResponseCache {
	t.Helper()
	cache, err := NewResponseCache(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCacheMiss(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	_, ok, err := cache.Get(context.Background(), "https://example.com/plays")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "https://example.com/plays", []byte("<plays/>")))

	body, ok, err := cache.Get(ctx, "https://example.com/plays")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("<plays/>"), body)
}

func TestCacheOverwrite(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "https://example.com/plays", []byte("old")))
	require.NoError(t, cache.Set(ctx, "https://example.com/plays", []byte("new")))

	body, ok, err := cache.Get(ctx, "https://example.com/plays")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), body)
}

func TestCacheExpiry(t *testing.T) {
	cache := newTestCache(t, 12*time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "https://example.com/plays", []byte("<plays/>")))

	// Move the clock past the TTL.
	cache.now = func() time.Time { return time.Now().Add(13 * time.Hour) }

	_, ok, err := cache.Get(ctx, "https://example.com/plays")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachePurge(t *testing.T) {
	cache := newTestCache(t, 12*time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "https://example.com/old", []byte("old")))

	cache.now = func() time.Time { return time.Now().Add(13 * time.Hour) }
	require.NoError(t, cache.Set(ctx, "https://example.com/fresh", []byte("fresh")))
	require.NoError(t, cache.Purge(ctx))

	_, ok, err := cache.Get(ctx, "https://example.com/old")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.Get(ctx, "https://example.com/fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}
