package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raumania/assistant/internal/domain"
)

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-redis-url", "")
	assert.Error(t, err)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, "redis://127.0.0.1:1/0", "")
	assert.ErrorIs(t, err, domain.ErrCacheUnavailable)
}

// Runs against a real server when RAUMANIA_TEST_REDIS_URL is set
func TestRedisCache_Integration(t *testing.T) {
	url := os.Getenv("RAUMANIA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("RAUMANIA_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	cache, err := NewRedisCache(ctx, url, "raumania-test:"+uuid.NewString()+":")
	require.NoError(t, err)
	defer cache.Close()

	_, err = cache.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", []byte{1, 2, 3}, time.Minute))
	got, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	exists, err := cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, cache.Delete(ctx, "k"))
	exists, err = cache.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}
