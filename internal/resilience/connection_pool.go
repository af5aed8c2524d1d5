package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
)

// maxResponseBytes bounds how much of a collaborator response is read
const maxResponseBytes = 8 << 20

// PoolConfig sizes the shared transport
type PoolConfig struct {
	MaxIdle         int
	MaxConnsPerHost int
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdle:         20,
		MaxConnsPerHost: 10,
		IdleTimeout:     90 * time.Second,
		RequestTimeout:  10 * time.Second,
	}
}

// ConnectionPool is one pooled HTTP transport shared by every collaborator
// client
type ConnectionPool struct {
	transport *http.Transport
	client    *http.Client
}

func NewConnectionPool(config PoolConfig) *ConnectionPool {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdle,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		MaxIdleConnsPerHost:   max(config.MaxIdle/2, 1),
		IdleConnTimeout:       config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		transport: transport,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout,
		},
	}
}

// Service returns a client for one named collaborator. The breaker and
// health manager may be shared with other components for reporting.
func (p *ConnectionPool) Service(name string, breaker *CircuitBreaker, retry RetryConfig, health *DegradationManager) *ServiceClient {
	if breaker == nil {
		breaker = NewCircuitBreaker(CircuitBreakerConfig{})
	}
	if health != nil {
		health.RegisterService(name, nil)
	}
	return &ServiceClient{
		name:    name,
		pool:    p,
		breaker: breaker,
		retry:   retry,
		health:  health,
		logger:  slog.Default().With("service", name),
	}
}

// Close drops idle connections
func (p *ConnectionPool) Close() error {
	p.transport.CloseIdleConnections()
	return nil
}

// ServiceClient calls one collaborator through the breaker with retries
type ServiceClient struct {
	name    string
	pool    *ConnectionPool
	breaker *CircuitBreaker
	retry   RetryConfig
	health  *DegradationManager
	logger  *slog.Logger

	requests atomic.Int64
	failures atomic.Int64
}

func (c *ServiceClient) Name() string { return c.name }

func (c *ServiceClient) Breaker() *CircuitBreaker { return c.breaker }

// Do sends the request and returns the body of a 2xx response. 5xx and
// transport errors count against the breaker and are retried; 4xx responses
// fail at once. Every failure is returned as an external API error.
func (c *ServiceClient) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	c.requests.Add(1)
	start := time.Now()

	var payload []byte
	err := Retry(ctx, c.retry, func() error {
		var clientErr error
		cbErr := c.breaker.Call(func() error {
			var err error
			payload, err = c.attempt(ctx, method, url, body, headers)
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests {
				clientErr = err
				return nil
			}
			return err
		})
		if cbErr != nil {
			return cbErr
		}
		return clientErr
	})

	if c.health != nil {
		c.health.RecordResult(c.name, err)
	}

	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("Collaborator request failed",
			"url", url,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.NewExternalAPIError(c.name, err)
	}

	c.logger.Debug("Collaborator request completed", "url", url, "duration_ms", time.Since(start).Milliseconds())
	return payload, nil
}

func (c *ServiceClient) attempt(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.pool.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer apperrors.SafeClose(resp.Body, c.name+" response body")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(truncate(string(data), 200))}
	}
	return data, nil
}

// ClientStats is the reported state of one collaborator client
type ClientStats struct {
	Service  string              `json:"service"`
	Requests int64               `json:"requests"`
	Failures int64               `json:"failures"`
	Breaker  CircuitBreakerState `json:"circuit_breaker_state"`
}

func (c *ServiceClient) Stats() ClientStats {
	return ClientStats{
		Service:  c.name,
		Requests: c.requests.Load(),
		Failures: c.failures.Load(),
		Breaker:  c.breaker.State(),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
