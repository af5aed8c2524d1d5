package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
)

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts     int              `json:"max_attempts"`
	InitialDelay    time.Duration    `json:"initial_delay"`
	MaxDelay        time.Duration    `json:"max_delay"`
	BackoffFactor   float64          `json:"backoff_factor"`
	JitterEnabled   bool             `json:"jitter_enabled"`
	RetryableErrors func(error) bool `json:"-"`
}

// Policies for the collaborators. Grammar checks sit on the request path, so
// they retry quickly; embeddings get a little more patience.
var (
	FastRetryPolicy = RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}

	StandardRetryPolicy = RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
)

// IsRetryable reports whether another attempt could succeed. An open
// breaker and client-side HTTP errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTPStatus(httpErr.StatusCode)
	}

	return apperrors.IsRetryableError(err)
}

// Retry runs fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx ends.
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	retryable := config.RetryableErrors
	if retryable == nil {
		retryable = IsRetryable
	}
	attempts := max(config.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(calculateDelay(config, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// calculateDelay is initial_delay * factor^attempt, capped, plus up to 10% jitter
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterEnabled && delay >= 10 {
		delay += time.Duration(rand.Int64N(int64(delay / 10)))
	}

	return delay
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// HTTPError is a non-2xx response from a collaborator
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return http.StatusText(e.StatusCode)
	}
	return http.StatusText(e.StatusCode) + ": " + e.Body
}
