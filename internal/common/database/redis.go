// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"mentor-matching/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient backs the profile snapshot cache. A slow Redis is treated as a
// cache miss, so read and write timeouts stay short.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) *RedisClient {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	return &RedisClient{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     poolSize,
		MinIdleConns: min(cfg.MinIdleConns, poolSize),
	})}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// PoolStats summarizes connection pool usage for the health endpoint.
func (c *RedisClient) PoolStats() map[string]interface{} {
	s := c.Client.PoolStats()
	return map[string]interface{}{
		"hits":       s.Hits,
		"misses":     s.Misses,
		"timeouts":   s.Timeouts,
		"totalConns": s.TotalConns,
		"idleConns":  s.IdleConns,
	}
}

func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}
