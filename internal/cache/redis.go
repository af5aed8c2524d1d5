package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cached responses in Redis so that replicas share them
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "introscore:cache:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get treats every Redis error as a miss
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Response cache read failed", "error", err)
		}
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Set(ctx context.Context, key string, data []byte) {
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		slog.Warn("Response cache write failed", "error", err)
	}
}

func (s *RedisStore) Stats() map[string]any {
	pool := s.client.PoolStats()
	return map[string]any{
		"backend":     "redis",
		"prefix":      s.prefix,
		"ttl_seconds": s.ttl.Seconds(),
		"pool_hits":   pool.Hits,
		"pool_misses": pool.Misses,
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
	}
}
