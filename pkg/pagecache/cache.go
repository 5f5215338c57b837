// Package pagecache keeps recently fetched pages in Redis so repeated crawls
// of the same listing or article within the TTL do not hit the source again.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "page:"

// Fetcher downloads one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Store is the part of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachingFetcher serves pages from Redis and falls through to the wrapped
// Fetcher on a miss. Cache errors never fail a fetch.
type CachingFetcher struct {
	next   Fetcher
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// New wraps next with a cache whose entries live for ttl.
func New(next Fetcher, store Store, ttl time.Duration, logger *zap.Logger) *CachingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingFetcher{next: next, store: store, ttl: ttl, logger: logger}
}

// Fetch returns the cached page for url or fetches and caches it.
func (f *CachingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	key := keyPrefix + url

	body, err := f.store.Get(ctx, key).Result()
	switch {
	case err == nil:
		f.logger.Debug("Page cache hit", zap.String("url", url))
		return body, nil
	case !errors.Is(err, redis.Nil):
		f.logger.Warn("Page cache read failed", zap.String("url", url), zap.Error(err))
	}

	body, err = f.next.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := f.store.Set(ctx, key, body, f.ttl).Err(); err != nil {
		f.logger.Warn("Page cache write failed", zap.String("url", url), zap.Error(err))
	}
	return body, nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
