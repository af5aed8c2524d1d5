package cache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCacheGetSetExpiry(t *testing.T) {
	c := NewCache(20 * time.Millisecond)
	defer c.Stop()
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 1, c.Size())

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	c.removeExpired()
	assert.Zero(t, c.Size())

	c.Set(ctx, "a", nil)
	c.Delete("a")
	c.Set(ctx, "b", nil)
	c.Clear()
	assert.Zero(t, c.Size())

	c.Stop()
	c.Stop()
}

func TestKeyIgnoresJSONFormatting(t *testing.T) {
	a := Key([]byte(`{"transcript":"Hello","duration":52}`))
	b := Key([]byte("{ \"duration\": 52,\n  \"transcript\": \"Hello\" }"))
	c := Key([]byte(`{"transcript":"Hello","duration":53}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.NotEmpty(t, Key([]byte("not json")))
}

func TestMiddleware(t *testing.T) {
	store := NewCache(time.Minute)
	defer store.Stop()
	metrics := monitoring.NewMetrics()

	var calls atomic.Int32
	r := gin.New()
	r.Use(Middleware(store, "/evaluate", metrics, nil))
	r.POST("/evaluate", func(c *gin.Context) {
		calls.Add(1)
		body, _ := io.ReadAll(c.Request.Body)
		if strings.Contains(string(body), `"duration":0`) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "echo": string(body)})
	})
	r.POST("/other", func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return w
	}

	first := post("/evaluate", `{"transcript":"hi","duration":10}`)
	second := post("/evaluate", `{"duration":10, "transcript":"hi"}`)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), calls.Load(), "second request is served from cache")

	post("/evaluate", `{"transcript":"hi","duration":0}`)
	post("/evaluate", `{"transcript":"hi","duration":0}`)
	assert.Equal(t, int32(3), calls.Load(), "errors are never cached")

	post("/other", `{}`)
	assert.Equal(t, 1, store.Size())

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(3), stats["cache_misses"])
}

func TestMiddlewareHonoursSkip(t *testing.T) {
	store := NewCache(time.Minute)
	defer store.Stop()

	r := gin.New()
	r.Use(Middleware(store, "/evaluate", nil, nil))
	r.POST("/evaluate", func(c *gin.Context) {
		c.Set(SkipKey, true)
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, store.Size())
}

func TestRedisStoreTreatsFailuresAsMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	defer client.Close()

	store := NewRedisStore(client, "", time.Minute)
	ctx := context.Background()

	store.Set(ctx, "k", []byte("v"))
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)

	stats := store.Stats()
	assert.Equal(t, "redis", stats["backend"])
	assert.Equal(t, "introscore:cache:", stats["prefix"])
}

func TestMiddlewareRejectsOversizedBody(t *testing.T) {
	store := NewCache(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		c.Next()
	})
	r.Use(Middleware(store, "/evaluate", nil, nil))
	r.POST("/evaluate", func(c *gin.Context) {
		calls.Add(1)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(strings.Repeat("x", 64))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, calls.Load())
	assert.Zero(t, store.Size())
}
