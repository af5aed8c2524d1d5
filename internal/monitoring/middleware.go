package monitoring

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"

	slowRequestThreshold = 5 * time.Second
)

// RequestIDMiddleware propagates an incoming X-Request-ID or mints a new one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the id set by RequestIDMiddleware, if any
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// MonitoringMiddleware records metrics and a log line for every request
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncrementRequest()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.Request.URL.Path

		metrics.RecordHTTPRequest(method, c.FullPath(), status, duration)
		if status >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(RequestID(c), method, path, c.ClientIP(), status, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, c.ClientIP(), status)
		}

		if duration > slowRequestThreshold {
			logger.SystemLogger("slow_request", fmt.Sprintf("%s %s took %s", method, path, duration.Round(time.Millisecond)))
		}
		if status >= 500 {
			logger.SystemLogger("server_error", fmt.Sprintf("status %d for %s %s", status, method, path))
		}
	}
}
