/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently accessed
// selection data, plus a small in-process TTL cache for hot filter lists.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultGalleryListTTL = 1 * time.Hour
	DefaultWeightsTTL     = 1 * time.Minute
	DefaultFilterListTTL  = 1 * time.Minute
	DefaultImageCountTTL  = 24 * time.Hour
)

// Key prefixes for Redis cache
const (
	KeyGalleryList    = "muninn:cache:galleries"
	KeyActiveWeights  = "muninn:cache:weights"
	KeyBlacklistedGal = "muninn:cache:blacklist:galleries"
	KeyWhitelistedGal = "muninn:cache:whitelist:galleries"
	KeyBlacklistedPer = "muninn:cache:blacklist:performers"
	KeyWhitelistedPer = "muninn:cache:whitelist:performers"
	KeyImageCount     = "muninn:cache:image_count:" // + gallery_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	GalleryListTTL time.Duration
	WeightsTTL     time.Duration
	FilterListTTL  time.Duration
	ImageCountTTL  time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		GalleryListTTL: DefaultGalleryListTTL,
		WeightsTTL:     DefaultWeightsTTL,
		FilterListTTL:  DefaultFilterListTTL,
		ImageCountTTL:  DefaultImageCountTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Gallery list caching methods

// CachedGallery represents a cached catalog gallery record.
type CachedGallery struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ImageCount int    `json:"image_count"`
}

// GetGalleryList retrieves the cached catalog gallery list.
func (c *Cache) GetGalleryList(ctx context.Context) ([]CachedGallery, bool) {
	var galleries []CachedGallery
	found, err := c.get(ctx, KeyGalleryList, &galleries)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(galleries)).Msg("gallery list cache hit")
	return galleries, true
}

// SetGalleryList caches the catalog gallery list.
func (c *Cache) SetGalleryList(ctx context.Context, galleries []CachedGallery) error {
	c.logger.Debug().Int("count", len(galleries)).Msg("caching gallery list")
	return c.set(ctx, KeyGalleryList, galleries, c.config.GalleryListTTL)
}

// InvalidateGalleryList removes the gallery list from cache.
func (c *Cache) InvalidateGalleryList(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating gallery list cache")
	return c.delete(ctx, KeyGalleryList)
}

// Weight caching methods

// GetActiveWeights retrieves the cached gallery weight map.
func (c *Cache) GetActiveWeights(ctx context.Context) (map[string]float64, bool) {
	var weights map[string]float64
	found, err := c.get(ctx, KeyActiveWeights, &weights)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Int("count", len(weights)).Msg("weight map cache hit")
	return weights, true
}

// SetActiveWeights caches the gallery weight map.
func (c *Cache) SetActiveWeights(ctx context.Context, weights map[string]float64) error {
	return c.set(ctx, KeyActiveWeights, weights, c.config.WeightsTTL)
}

// InvalidateActiveWeights removes the weight map from cache. Called after
// every weight update so the next draw sees fresh weights.
func (c *Cache) InvalidateActiveWeights(ctx context.Context) error {
	return c.delete(ctx, KeyActiveWeights)
}

// Filter list caching methods

// GetFilterList retrieves a cached filter list by key (one of the
// KeyBlacklisted*/KeyWhitelisted* constants).
func (c *Cache) GetFilterList(ctx context.Context, key string) ([]string, bool) {
	var ids []string
	found, err := c.get(ctx, key, &ids)
	if err != nil || !found {
		return nil, false
	}
	return ids, true
}

// SetFilterList caches a filter list under the given key.
func (c *Cache) SetFilterList(ctx context.Context, key string, ids []string) error {
	return c.set(ctx, key, ids, c.config.FilterListTTL)
}

// InvalidateFilterLists removes every filter list so the next selection
// rebuilds them from the store. Called after every processed vote.
func (c *Cache) InvalidateFilterLists(ctx context.Context) error {
	for _, key := range []string{
		KeyBlacklistedGal, KeyWhitelistedGal,
		KeyBlacklistedPer, KeyWhitelistedPer,
	} {
		if err := c.delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Image count caching methods

// GetImageCount retrieves a cached catalog-side image count for a gallery.
func (c *Cache) GetImageCount(ctx context.Context, galleryID string) (int, bool) {
	var count int
	found, err := c.get(ctx, KeyImageCount+galleryID, &count)
	if err != nil || !found {
		return 0, false
	}
	return count, true
}

// SetImageCount caches the catalog-side image count for a gallery.
func (c *Cache) SetImageCount(ctx context.Context, galleryID string, count int) error {
	return c.set(ctx, KeyImageCount+galleryID, count, c.config.ImageCountTTL)
}

// InvalidateGallery removes all caches related to one gallery.
func (c *Cache) InvalidateGallery(ctx context.Context, galleryID string) error {
	c.logger.Debug().Str("gallery_id", galleryID).Msg("invalidating gallery caches")

	if err := c.delete(ctx, KeyImageCount+galleryID); err != nil {
		return err
	}
	if err := c.InvalidateActiveWeights(ctx); err != nil {
		return err
	}
	return c.InvalidateGalleryList(ctx)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "muninn:cache:*")
}
