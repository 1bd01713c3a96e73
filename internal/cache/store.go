package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultStoreTTL is used when a StoreCache is built with a zero TTL.
const DefaultStoreTTL = 5 * time.Minute

// StoreReader is the store lookup a StoreCache fronts.
type StoreReader interface {
	StoreByID(ctx context.Context, storeID string) (*domain.Store, error)
	StoreBySlug(ctx context.Context, slug string) (*domain.Store, error)
}

// StoreCache is a read-through Redis cache over a StoreReader. Redis errors
// are logged and fall through to the underlying reader.
type StoreCache struct {
	client *redis.Client
	next   StoreReader
	ttl    time.Duration
	logger *slog.Logger
}

// NewStoreCache wraps next with client.
func NewStoreCache(client *redis.Client, next StoreReader, ttl time.Duration, logger *slog.Logger) *StoreCache {
	if ttl <= 0 {
		ttl = DefaultStoreTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreCache{client: client, next: next, ttl: ttl, logger: logger}
}

// NewClient opens a Redis client from a redis:// URL and verifies it with PING.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *StoreCache) StoreByID(ctx context.Context, storeID string) (*domain.Store, error) {
	return c.read(ctx, "store:id:"+storeID, func() (*domain.Store, error) {
		return c.next.StoreByID(ctx, storeID)
	})
}

func (c *StoreCache) StoreBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	return c.read(ctx, "store:slug:"+slug, func() (*domain.Store, error) {
		return c.next.StoreBySlug(ctx, slug)
	})
}

func (c *StoreCache) read(ctx context.Context, key string, load func() (*domain.Store, error)) (*domain.Store, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s domain.Store
		if jsonErr := json.Unmarshal(raw, &s); jsonErr == nil {
			return &s, nil
		}
		c.logger.Warn("discarding malformed cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("store cache read failed", "key", key, "error", err)
	}

	s, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(s); err == nil {
		pipe := c.client.TxPipeline()
		pipe.Set(ctx, "store:id:"+s.ID, data, c.ttl)
		if s.Slug != "" {
			pipe.Set(ctx, "store:slug:"+s.Slug, data, c.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Warn("store cache write failed", "key", key, "error", err)
		}
	}

	return s, nil
}
