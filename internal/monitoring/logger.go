package monitoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var startTime = time.Now()

// Logger provides structured logging with domain helpers
type Logger struct {
	*slog.Logger
}

// NewLogger returns a JSON logger writing to w (stdout when nil)
func NewLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stdout
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps debug|info|warn|error to a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(requestID, method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// EvaluationLogger logs a completed evaluation. The transcript itself is
// never logged, only its size.
func (l *Logger) EvaluationLogger(requestID string, words, finalScore int, grade string, fallbacks []string, duration time.Duration, cacheHit bool) {
	l.Info("Evaluation Completed",
		"request_id", requestID,
		"word_count", words,
		"final_score", finalScore,
		"grade", grade,
		"fallbacks", fallbacks,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// CollaboratorLogger logs one call to a scoring collaborator
func (l *Logger) CollaboratorLogger(service, operation string, duration time.Duration, err error) {
	if err != nil {
		l.Warn("Collaborator Call",
			"service", service,
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"success", false,
			"error", err.Error(),
		)
		return
	}
	l.Debug("Collaborator Call",
		"service", service,
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
		"success", true,
	)
}

// APIErrorLogger logs API errors with the caller location
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(1); ok {
		caller = file + ":" + strconv.Itoa(line)
	}

	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"caller", caller,
	)
}

// CacheLogger logs response cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	l.Debug("Cache Operation",
		"operation", operation,
		"key_hash", key,
		"hit", hit,
		"cache_size", itemCount,
	)
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Log(context.Background(), slog.LevelInfo, "System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(startTime).Round(time.Second).String(),
	)
}
