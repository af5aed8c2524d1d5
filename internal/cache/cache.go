package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/gin-gonic/gin"
)

// CacheItem is a cached response body with its expiry
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Store is the backing storage for cached responses
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Stats() map[string]any
}

// Cache is an in-memory TTL store
type Cache struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	ttl   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache returns a cache whose entries live for ttl. Call Stop to end the
// background sweep.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		items: make(map[string]*CacheItem),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go c.cleanup(sweepInterval(ttl))
	return c
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

func (c *Cache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || item.IsExpired() {
		return nil, false
	}
	return item.Data, true
}

func (c *Cache) Set(_ context.Context, key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.ttl),
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*CacheItem)
}

func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) Stats() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	for _, item := range c.items {
		if item.IsExpired() {
			expired++
		}
	}

	return map[string]any{
		"backend":       "memory",
		"total_items":   len(c.items),
		"expired_items": expired,
		"active_items":  len(c.items) - expired,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Key hashes a request body. JSON bodies are re-encoded first so that
// whitespace and key order do not produce distinct entries.
func Key(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		if canonical, err := json.Marshal(v); err == nil {
			body = canonical
		}
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// SkipKey, set true on the gin context by a handler, keeps its response out
// of the cache
const SkipKey = "cache_skip"

// Middleware serves POST responses for path from store and stores every
// 200 response it lets through unless the handler set SkipKey
func Middleware(store Store, path string, metrics *monitoring.Metrics, logger *monitoring.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || ctx.Request.URL.Path != path {
			ctx.Next()
			return
		}

		// the body is bounded upstream; an over-long one surfaces here as
		// *http.MaxBytesError and becomes a 413
		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if !errors.As(err, &tooLarge) {
				err = apperrors.NewValidationError("Request body could not be read.", "body")
			}
			apperrors.Abort(ctx, err)
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := Key(body)
		reqCtx := ctx.Request.Context()

		if cached, found := store.Get(reqCtx, key); found {
			if metrics != nil {
				metrics.IncrementCacheHit()
			}
			if logger != nil {
				logger.CacheLogger("get", key, true, 0)
			}
			ctx.Set("cache_hit", true)
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			ctx.Abort()
			return
		}

		if metrics != nil {
			metrics.IncrementCacheMiss()
		}

		wrapper := &responseWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = wrapper
		ctx.Next()

		if ctx.Writer.Status() == http.StatusOK && wrapper.body.Len() > 0 && !ctx.GetBool(SkipKey) {
			store.Set(reqCtx, key, wrapper.body.Bytes())
			if logger != nil {
				logger.CacheLogger("set", key, false, 0)
			}
		}
	}
}

// responseWriter captures the body written by the handler
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
