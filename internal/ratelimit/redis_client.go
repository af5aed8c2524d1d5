package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var errRedisDisabled = errors.New("redis is disabled")

// RedisClient wraps the Redis client and records whether it is usable.
// A disabled client makes every consumer fall back to in-memory state.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient connects to addr. An empty addr returns a disabled client
// and no error; a failed ping returns a disabled client and the error.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		return &RedisClient{}, nil
	}

	slog.Info("Initializing Redis client", "addr", addr, "db", db)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return &RedisClient{addr: addr}, fmt.Errorf("redis ping failed: %w", err)
	}

	slog.Info("Redis client connected", "addr", addr)
	return &RedisClient{client: client, enabled: true, addr: addr}, nil
}

// Client returns the underlying client, nil when disabled
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func (r *RedisClient) IsEnabled() bool {
	return r != nil && r.enabled
}

// HealthCheck pings Redis. It has the shape the degradation manager expects.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if !r.IsEnabled() {
		return errRedisDisabled
	}
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	if r.IsEnabled() {
		slog.Info("Closing Redis client connection")
		return r.client.Close()
	}
	return nil
}

// PoolStats returns Redis connection pool statistics
func (r *RedisClient) PoolStats() map[string]any {
	if !r.IsEnabled() {
		return map[string]any{"enabled": false}
	}

	stats := r.client.PoolStats()
	return map[string]any{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
