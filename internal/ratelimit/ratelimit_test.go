package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newMemoryLimiter(t *testing.T, perMin int) (*RateLimiter, *monitoring.Metrics) {
	t.Helper()
	metrics := monitoring.NewMetrics()
	rl := NewRateLimiter(nil, Config{IPLimitPerMin: perMin, CleanupInterval: time.Hour}, metrics)
	t.Cleanup(rl.Close)
	return rl, metrics
}

func TestFallbackAllowsUpToLimit(t *testing.T) {
	rl, metrics := newMemoryLimiter(t, 60)
	ctx := context.Background()
	r := Rate{Limit: 5, Period: time.Minute}

	for i := 0; i < 5; i++ {
		res, err := rl.Allow(ctx, "k", r)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 5, res.Limit)
	}

	res, err := rl.Allow(ctx, "k", r)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, 12*time.Second)

	assert.Equal(t, int64(6), metrics.GetRateLimitStats()["fallback_count"])
}

func TestKeysAreIndependent(t *testing.T) {
	rl, _ := newMemoryLimiter(t, 60)
	ctx := context.Background()
	r := Rate{Limit: 2, Period: time.Minute}

	for _, key := range []string{"a", "b", "c"} {
		for i := 0; i < 2; i++ {
			res, err := rl.Allow(ctx, key, r)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		}
		res, _ := rl.Allow(ctx, key, r)
		assert.False(t, res.Allowed, key)
	}
}

func TestStatusDoesNotConsume(t *testing.T) {
	rl, _ := newMemoryLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := rl.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		res, err := rl.StatusIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, _ := rl.AllowIP(ctx, "10.0.0.1")
	assert.True(t, res.Allowed)
	res, _ = rl.StatusIP(ctx, "10.0.0.1")
	assert.False(t, res.Allowed)
}

func TestInvalidate(t *testing.T) {
	rl, _ := newMemoryLimiter(t, 1)
	ctx := context.Background()
	endpoint := Rate{Limit: 1, Period: time.Minute}

	_, _ = rl.AllowIP(ctx, "1.1.1.1")
	_, _ = rl.Allow(ctx, endpointKey("evaluate", "1.1.1.1"), endpoint)
	_, _ = rl.AllowIP(ctx, "2.2.2.2")

	res, _ := rl.AllowIP(ctx, "1.1.1.1")
	require.False(t, res.Allowed)

	require.NoError(t, rl.InvalidateIP(ctx, "1.1.1.1"))
	res, _ = rl.AllowIP(ctx, "1.1.1.1")
	assert.True(t, res.Allowed)
	res, _ = rl.Allow(ctx, endpointKey("evaluate", "1.1.1.1"), endpoint)
	assert.True(t, res.Allowed)

	res, _ = rl.AllowIP(ctx, "2.2.2.2")
	assert.False(t, res.Allowed, "other IPs keep their state")

	require.NoError(t, rl.InvalidateAll(ctx))
	assert.Equal(t, 0, rl.GetStats()["fallback_limiters"])
}

func TestCleanupDropsIdleLimiters(t *testing.T) {
	rl, _ := newMemoryLimiter(t, 10)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, _ = rl.AllowIP(ctx, "10.0.0."+strconv.Itoa(i))
	}
	assert.Equal(t, 20, rl.GetStats()["fallback_limiters"])

	assert.Zero(t, rl.cleanup(time.Now()))
	assert.Equal(t, 20, rl.cleanup(time.Now().Add(2*time.Hour)))
	assert.Equal(t, 0, rl.GetStats()["fallback_limiters"])
}

func TestConcurrentAllow(t *testing.T) {
	rl, _ := newMemoryLimiter(t, 60)
	ctx := context.Background()
	r := Rate{Limit: 100, Period: time.Hour}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				res, err := rl.Allow(ctx, "shared", r)
				assert.NoError(t, err)
				if res.Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestDisabledRedisClient(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.False(t, client.IsEnabled())
	assert.Error(t, client.HealthCheck(context.Background()))
	assert.NoError(t, client.Close())
	assert.Equal(t, map[string]any{"enabled": false}, client.PoolStats())

	var nilClient *RedisClient
	assert.False(t, nilClient.IsEnabled())
}

func TestIPRateLimitMiddleware(t *testing.T) {
	rl, metrics := newMemoryLimiter(t, 2)

	r := gin.New()
	r.POST("/evaluate", rl.IPRateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/evaluate", nil))
		if i < 2 {
			assert.Equal(t, http.StatusOK, last.Code)
			assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	retry, err := strconv.Atoi(last.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)

	var body map[string]any
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, int64(1), metrics.GetRateLimitStats()["ip_blocks"])
}

func TestEndpointRateLimitMiddleware(t *testing.T) {
	rl, metrics := newMemoryLimiter(t, 100)

	r := gin.New()
	r.GET("/sample", rl.EndpointRateLimitMiddleware("sample", 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sample", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, map[string]int64{"sample": 1}, metrics.GetRateLimitStats()["endpoint_blocks"])
}

func TestStatusAndResetHandlers(t *testing.T) {
	rl, _ := newMemoryLimiter(t, 5)

	r := gin.New()
	r.POST("/evaluate", rl.IPRateLimitMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/ratelimit/status", rl.HandleRateLimitStatus())
	r.POST("/ratelimit/reset", RequireAdminToken("s3cret"), rl.HandleReset())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/evaluate", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 5, status.Limit)
	assert.Equal(t, 4, status.Remaining)
	assert.Equal(t, false, status.Limiter["redis_enabled"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ratelimit/reset", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/ratelimit/reset", strings.NewReader(`{"ip":"192.0.2.1"}`))
	req.Header.Set("X-Admin-Token", "s3cret")
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "192.0.2.1")

	req = httptest.NewRequest(http.MethodPost, "/ratelimit/reset", nil)
	req.Header.Set("X-Admin-Token", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"reset":"all"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/status", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 5, status.Remaining)
}
