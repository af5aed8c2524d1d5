package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

const keyPrefix = "introscore:ratelimit:"

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin   int           // requests per minute per client IP
	CleanupInterval time.Duration // how often idle in-memory limiters are dropped
}

func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:   30,
		CleanupInterval: 10 * time.Minute,
	}
}

// Rate is a limit of Limit requests per Period
type Rate struct {
	Limit  int
	Period time.Duration
}

// Result is the outcome of one rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests with Redis (GCRA via redis_rate) and falls
// back to in-memory token buckets when Redis is missing or failing
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackMu sync.Mutex
	fallback   map[string]*fallbackEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter returns a limiter. redisClient may be nil or disabled.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.IPLimitPerMin <= 0 {
		config.IPLimitPerMin = DefaultConfig().IPLimitPerMin
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &RateLimiter{
		redisClient: redisClient,
		config:      config,
		metrics:     metrics,
		fallback:    make(map[string]*fallbackEntry),
		stop:        make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.Client())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupLoop()
	return rl
}

func ipKey(ip string) string {
	return keyPrefix + "ip:" + ip
}

func endpointKey(endpoint, ip string) string {
	return fmt.Sprintf("%sendpoint:%s:%s", keyPrefix, endpoint, ip)
}

// IPRate is the per-minute limit applied to every client IP
func (rl *RateLimiter) IPRate() Rate {
	return Rate{Limit: rl.config.IPLimitPerMin, Period: time.Minute}
}

// AllowIP consumes one request from ip's per-minute budget
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, ipKey(ip), rl.IPRate())
}

// StatusIP reports ip's budget without consuming it
func (rl *RateLimiter) StatusIP(ctx context.Context, ip string) (*Result, error) {
	return rl.check(ctx, ipKey(ip), rl.IPRate(), 0)
}

// Allow consumes one request from key's budget
func (rl *RateLimiter) Allow(ctx context.Context, key string, r Rate) (*Result, error) {
	return rl.check(ctx, key, r, 1)
}

func (rl *RateLimiter) check(ctx context.Context, key string, r Rate, n int) (*Result, error) {
	if rl.redisLimiter != nil {
		res, err := rl.checkRedis(ctx, key, r, n)
		if err == nil {
			return res, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitRedisError()
		}
	}

	if rl.metrics != nil && n > 0 {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.checkFallback(key, r, n), nil
}

func (rl *RateLimiter) checkRedis(ctx context.Context, key string, r Rate, n int) (*Result, error) {
	limit := redis_rate.Limit{Rate: r.Limit, Burst: r.Limit, Period: r.Period}

	res, err := rl.redisLimiter.AllowN(ctx, key, limit, n)
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	allowed := res.Allowed > 0 || (n == 0 && res.Remaining > 0)
	return &Result{
		Allowed:    allowed,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: max(res.RetryAfter, 0),
	}, nil
}

func (rl *RateLimiter) checkFallback(key string, r Rate, n int) *Result {
	now := time.Now()
	every := r.Period / time.Duration(max(r.Limit, 1))

	rl.fallbackMu.Lock()
	entry, ok := rl.fallback[key]
	if !ok {
		entry = &fallbackEntry{limiter: rate.NewLimiter(rate.Every(every), r.Limit)}
		rl.fallback[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMu.Unlock()

	allowed := true
	if n > 0 {
		allowed = entry.limiter.AllowN(now, n)
	}

	tokens := entry.limiter.TokensAt(now)
	remaining := max(int(tokens), 0)
	if n == 0 {
		allowed = remaining > 0
	}

	// time until the bucket is full again
	missing := float64(r.Limit) - tokens
	resetAt := now.Add(time.Duration(missing * float64(every)))

	res := &Result{
		Allowed:   allowed,
		Limit:     r.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !allowed {
		res.RetryAfter = time.Duration((1 - tokens) * float64(every))
	}
	return res
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops in-memory limiters idle for longer than the cleanup interval
func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.fallbackMu.Lock()
	defer rl.fallbackMu.Unlock()

	removed := 0
	for key, entry := range rl.fallback {
		if now.Sub(entry.lastSeen) > rl.config.CleanupInterval {
			delete(rl.fallback, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Dropped idle fallback rate limiters", "count", removed)
	}
	return removed
}

// Close stops the cleanup loop. The Redis client is owned by the caller.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// GetStats returns limiter state for the status endpoint
func (rl *RateLimiter) GetStats() map[string]any {
	rl.fallbackMu.Lock()
	fallbackCount := len(rl.fallback)
	rl.fallbackMu.Unlock()

	return map[string]any{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"ip_limit_per_min":  rl.config.IPLimitPerMin,
		"redis_pool":        rl.redisClient.PoolStats(),
	}
}
