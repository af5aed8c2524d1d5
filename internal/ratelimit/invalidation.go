package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// redis_rate stores each key under this prefix
const redisRatePrefix = "rate:"

// InvalidateIP resets every budget held by ip
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	if rl.redisLimiter == nil {
		rl.dropFallback(func(key string) bool {
			return key == ipKey(ip) || (strings.HasPrefix(key, keyPrefix+"endpoint:") && strings.HasSuffix(key, ":"+ip))
		})
		slog.Info("Invalidated IP rate limits (in-memory)", "ip", ip)
		return nil
	}

	if err := rl.redisLimiter.Reset(ctx, ipKey(ip)); err != nil {
		return fmt.Errorf("reset ip limit: %w", err)
	}
	return rl.deleteByPattern(ctx, redisRatePrefix+keyPrefix+"endpoint:*:"+ip)
}

// InvalidateAll removes every rate limit key
func (rl *RateLimiter) InvalidateAll(ctx context.Context) error {
	if rl.redisLimiter == nil {
		n := rl.dropFallback(func(string) bool { return true })
		slog.Warn("Invalidated all rate limits (in-memory)", "count", n)
		return nil
	}

	slog.Warn("Invalidating all rate limits")
	return rl.deleteByPattern(ctx, redisRatePrefix+keyPrefix+"*")
}

func (rl *RateLimiter) dropFallback(match func(key string) bool) int {
	rl.fallbackMu.Lock()
	defer rl.fallbackMu.Unlock()

	n := 0
	for key := range rl.fallback {
		if match(key) {
			delete(rl.fallback, key)
			n++
		}
	}
	return n
}

// deleteByPattern removes Redis keys matching pattern using SCAN
func (rl *RateLimiter) deleteByPattern(ctx context.Context, pattern string) error {
	client := rl.redisClient.Client()

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("delete keys: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Info("Deleted rate limit keys", "pattern", pattern, "count", deleted)
	return nil
}
