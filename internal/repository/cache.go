package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/xxh3"
)

const snapshotKeyPrefix = "mentoring:snapshot:"

// SnapshotCache is a two-level JSON cache: an in-process go-cache in front of
// Redis. A nil Redis client makes it process-local.
type SnapshotCache struct {
	local *cache.Cache
	rdb   redis.Cmdable
	ttl   time.Duration
}

func NewSnapshotCache(rdb redis.Cmdable, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		local: cache.New(ttl, 2*ttl),
		rdb:   rdb,
		ttl:   ttl,
	}
}

// SnapshotKey derives a cache key from a kind and an unordered set of parts.
func SnapshotKey(kind string, parts ...string) string {
	sorted := append([]string(nil), parts...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s%s:%016x", snapshotKeyPrefix, kind, xxh3.HashString(strings.Join(sorted, "\x00")))
}

// Get decodes the cached value into dst and reports whether it was found.
func (c *SnapshotCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if raw, ok := c.local.Get(key); ok {
		return true, json.Unmarshal(raw.([]byte), dst)
	}
	if c.rdb == nil {
		return false, nil
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	c.local.Set(key, data, cache.DefaultExpiration)
	return true, nil
}

// Set stores v in both levels.
func (c *SnapshotCache) Set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	c.local.Set(key, data, cache.DefaultExpiration)
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
