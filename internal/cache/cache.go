// Package cache keeps recent query responses in Redis so repeated queries
// skip the engine. The cache owns its Redis connection; concurrent misses
// for one key collapse into a single computation via singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/avelichko/searchserver/internal/search"
	"github.com/avelichko/searchserver/pkg/config"
)

const keyPrefix = "search:"

// QueryCache caches ranked responses keyed by normalized query and status
// filter. Execution policy and pagination are deliberately absent from the
// key: the parallel path returns identical results, and pages are cut after
// retrieval.
type QueryCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New dials Redis and verifies the connection with a PING.
func New(cfg config.RedisConfig) (*QueryCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &QueryCache{
		rdb:    rdb,
		ttl:    cfg.CacheTTL,
		logger: slog.Default().With("component", "query-cache"),
	}, nil
}

// GetOrCompute returns the cached response for the key, or runs computeFn
// once, stores its result, and returns it. The boolean reports a cache hit:
// it is true whenever this call did not run computeFn itself, including when
// it received the result of a concurrent caller's computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	status search.DocumentStatus,
	computeFn func() ([]search.Document, error),
) ([]search.Document, bool, error) {
	key := c.buildKey(query, status)
	if docs, ok := c.fetch(ctx, key); ok {
		return docs, true, nil
	}
	computed := false
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if docs, ok := c.fetch(ctx, key); ok {
			return docs, nil
		}
		computed = true
		docs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]search.Document), !computed, nil
}

// Invalidate removes every cached response. Called after any write to the
// index, since removals and additions shift the live document count and
// every IDF with it.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting cached query %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cached queries: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Ping reports whether the Redis connection is healthy.
func (c *QueryCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Stats returns cumulative hit and miss counts.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close closes the underlying Redis connection.
func (c *QueryCache) Close() error {
	return c.rdb.Close()
}

func (c *QueryCache) fetch(ctx context.Context, key string) ([]search.Document, bool) {
	data, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache fetch failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var docs []search.Document
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return docs, true
}

func (c *QueryCache) store(ctx context.Context, key string, docs []search.Document) {
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache store failed", "key", key, "error", err)
	}
}

func (c *QueryCache) buildKey(query string, status search.DocumentStatus) string {
	raw := fmt.Sprintf("%s|status=%d", normalizeQuery(query), status)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery sorts the query's tokens so permutations of the same terms
// share a cache entry. Dedup semantics make token order irrelevant to the
// response.
func normalizeQuery(query string) string {
	words := strings.Fields(query)
	sort.Strings(words)
	return strings.Join(words, " ")
}
