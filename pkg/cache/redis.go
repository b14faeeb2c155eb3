// Package cache keeps read-mostly listings in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"storefront/internal/models"
)

const (
	categoriesKey = "storefront:categories"
	generationKey = categoriesKey + ":generation"
)

// Options holds Redis connection details.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	log.WithField("addr", opts.Addr).Info("Redis connected")
	return client, nil
}

// CategoryCache stores the category listing as one JSON value per
// generation. Invalidation increments the generation counter, which leaves
// listings written for an older generation unreachable until they expire.
type CategoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCategoryCache creates a CategoryCache whose entries expire after ttl.
func NewCategoryCache(client redis.Cmdable, ttl time.Duration) *CategoryCache {
	return &CategoryCache{client: client, ttl: ttl}
}

func listingKey(generation int64) string {
	return fmt.Sprintf("%s:%d", categoriesKey, generation)
}

func (c *CategoryCache) generation(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read category cache generation: %w", err)
	}
	return generation, nil
}

// GetCategories returns the listing of the current generation; ok is false on
// a miss.
func (c *CategoryCache) GetCategories(ctx context.Context) ([]models.Category, int64, bool, error) {
	generation, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.client.Get(ctx, listingKey(generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read category cache: %w", err)
	}

	var categories []models.Category
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, 0, false, fmt.Errorf("corrupt category cache entry: %w", err)
	}
	return categories, generation, true, nil
}

// SetCategories stores the listing for generation.
func (c *CategoryCache) SetCategories(ctx context.Context, generation int64, categories []models.Category) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	if err := c.client.Set(ctx, listingKey(generation), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write category cache: %w", err)
	}
	return nil
}

// InvalidateCategories starts a new generation.
func (c *CategoryCache) InvalidateCategories(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate category cache: %w", err)
	}
	return nil
}
