package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"courseforge/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "courseforge:videos:"

// Cache stores curated lists by query. Implementations swallow their own errors.
type Cache interface {
	Get(ctx context.Context, query string) ([]model.VideoResult, bool)
	Set(ctx context.Context, query string, results []model.VideoResult)
}

// RedisCache keeps curated lists in redis to save search quota.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisCache connects to the redis instance at url (redis://...).
func NewRedisCache(ctx context.Context, url string, ttl time.Duration, logger zerolog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "VideoCache").Logger(),
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, query string) ([]model.VideoResult, bool) {
	raw, err := c.client.Get(ctx, CacheKey(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("Video cache read failed")
		}
		return nil, false
	}
	var results []model.VideoResult
	if err := json.Unmarshal(raw, &results); err != nil {
		c.logger.Warn().Err(err).Msg("Discarding corrupt video cache entry")
		return nil, false
	}
	return results, true
}

func (c *RedisCache) Set(ctx context.Context, query string, results []model.VideoResult) {
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, CacheKey(query), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Video cache write failed")
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// CacheKey normalizes case and whitespace so equivalent module names share an entry.
func CacheKey(query string) string {
	return cacheKeyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
