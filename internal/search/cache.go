package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/store"
)

// Cache stores serialized results by key. Get returns ErrCacheMiss when the
// key is absent or expired.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ErrCacheMiss is returned by Cache.Get for absent keys.
var ErrCacheMiss = errors.New("search: cache miss")

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache wraps a Redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: "coldemail:search:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, eris.Wrap(err, "search: redis get")
	}
	return b, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return eris.Wrap(c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(), "search: redis set")
}

// StoreCache is a Cache backed by the database cache table.
type StoreCache struct {
	st store.Store
}

// NewStoreCache wraps a Store.
func NewStoreCache(st store.Store) *StoreCache {
	return &StoreCache{st: st}
}

func (c *StoreCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.st.GetCached(ctx, key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (c *StoreCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.st.SetCached(ctx, key, value, ttl)
}

// CacheKey hashes the parts into a stable key.
func CacheKey(kind string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

// CachedWeb caches web search results. Empty results are not cached.
type CachedWeb struct {
	next  WebSearcher
	cache Cache
	ttl   time.Duration
}

// NewCachedWeb wraps next with cache.
func NewCachedWeb(next WebSearcher, cache Cache, ttl time.Duration) *CachedWeb {
	return &CachedWeb{next: next, cache: cache, ttl: ttl}
}

// SearchWeb implements WebSearcher.
func (c *CachedWeb) SearchWeb(ctx context.Context, query string) []WebResult {
	key := CacheKey("web", query)
	if b, err := c.cache.Get(ctx, key); err == nil {
		var results []WebResult
		if json.Unmarshal(b, &results) == nil {
			return results
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		zap.L().Debug("search: cache read failed", zap.Error(err))
	}

	results := c.next.SearchWeb(ctx, query)
	if len(results) > 0 {
		if b, err := json.Marshal(results); err == nil {
			if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
				zap.L().Debug("search: cache write failed", zap.Error(err))
			}
		}
	}
	return results
}

// CachedFetcher caches fetched page text. Empty pages are not cached.
type CachedFetcher struct {
	next  PageFetcher
	cache Cache
	ttl   time.Duration
}

// NewCachedFetcher wraps next with cache.
func NewCachedFetcher(next PageFetcher, cache Cache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl}
}

// FetchPage implements PageFetcher.
func (c *CachedFetcher) FetchPage(ctx context.Context, url string) string {
	key := CacheKey("page", url)
	if b, err := c.cache.Get(ctx, key); err == nil {
		return string(b)
	}

	text := c.next.FetchPage(ctx, url)
	if text != "" {
		if err := c.cache.Set(ctx, key, []byte(text), c.ttl); err != nil {
			zap.L().Debug("search: cache write failed", zap.Error(err))
		}
	}
	return text
}
