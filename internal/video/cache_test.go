package video

import (
	"context"
	"os"
	"testing"
	"time"

	"courseforge/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyNormalizes(t *testing.T) {
	assert.Equal(t, CacheKey("Go  Basics tutorial"), CacheKey(" go basics   TUTORIAL "))
	assert.NotEqual(t, CacheKey("go basics"), CacheKey("go advanced"))
}

func TestNewRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", time.Minute, zerolog.Nop())
	assert.Error(t, err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set, skip redis integration test")
	}
	ctx := context.Background()
	cache, err := NewRedisCache(ctx, url, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	defer cache.Close()

	query := "cache round trip " + time.Now().Format(time.RFC3339Nano)
	_, ok := cache.Get(ctx, query)
	assert.False(t, ok)

	want := []model.VideoResult{{VideoID: "v1", Title: "Go tutorial", ViewCount: 12, Source: model.VideoSourceYouTube}}
	cache.Set(ctx, query, want)

	got, ok := cache.Get(ctx, query)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
