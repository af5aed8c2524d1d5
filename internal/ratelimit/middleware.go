package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

func setHeaders(c *gin.Context, prefix string, res *Result) {
	c.Header(prefix+"-Limit", strconv.Itoa(res.Limit))
	c.Header(prefix+"-Remaining", strconv.Itoa(res.Remaining))
	c.Header(prefix+"-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

// IPRateLimitMiddleware applies the per-IP limit. Limiter failures never
// block a request.
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		res, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit", res)

		if !res.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}
			retry := retryAfterSeconds(res.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d evaluations per minute", res.Limit),
				"retry_after": retry,
				"reset_at":    res.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware applies a separate per-minute budget for one
// endpoint on top of the IP limit
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	r := Rate{Limit: limit, Period: time.Minute}

	return func(c *gin.Context) {
		ip := c.ClientIP()

		res, err := rl.Allow(c.Request.Context(), endpointKey(endpoint, ip), r)
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit-Endpoint", res)

		if !res.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint(endpoint)
			}
			retry := retryAfterSeconds(res.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "rate limit exceeded for endpoint: " + endpoint,
				"retry_after": retry,
			})
			return
		}

		c.Next()
	}
}
