package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/adapters"
	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/ZanzyTHEbar/introscore/internal/app"
	"github.com/ZanzyTHEbar/introscore/internal/cache"
	"github.com/ZanzyTHEbar/introscore/internal/config"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/ZanzyTHEbar/introscore/internal/ratelimit"
	"github.com/ZanzyTHEbar/introscore/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, mutate func(*config.Config)) (*gin.Engine, *server) {
	t.Helper()

	cfg := config.Default()
	cfg.HealthCheckInterval = 0
	if mutate != nil {
		mutate(cfg)
	}

	a, err := app.New(context.Background(), cfg, monitoring.NewLogger(io.Discard, slog.LevelError))
	require.NoError(t, err)

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.IPLimitPerMin = cfg.RateLimit.PerMinute
	limiter := ratelimit.NewRateLimiter(nil, limiterCfg, a.Metrics)

	store := cache.NewCache(cfg.Cache.TTL)

	t.Cleanup(func() {
		limiter.Close()
		store.Stop()
		_ = a.Close()
	})

	s := &server{app: a, limiter: limiter, cache: store}
	return newRouter(s), s
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(types.EvaluateRequest{Transcript: analysis.SampleTranscript, Duration: analysis.SampleDuration})
	require.NoError(t, err)
	return string(b)
}

func TestEvaluateEndpoint_Valid(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/evaluate", sampleBody(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp types.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Results)
	assert.Equal(t, 134, resp.Results.Metadata.WordCount)
	assert.Equal(t, 52, resp.Results.Metadata.DurationSeconds)
	assert.Equal(t, 100, resp.Results.MaxScore)
	assert.NotEmpty(t, resp.Results.Grade)

	assert.NotEmpty(t, w.Header().Get(monitoring.RequestIDHeader))
	assert.Equal(t, "30", w.Header().Get("X-RateLimit-Limit"))
}

func TestEvaluateEndpoint_TrimsAndTruncates(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, http.MethodPost, "/evaluate", `{"transcript":"  Hello everyone, I am Ravi.  ","duration":10.9}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hello everyone, I am Ravi.", resp.Results.Transcript)
	assert.Equal(t, 10, resp.Results.Metadata.DurationSeconds)
}

func TestEvaluateEndpoint_InvalidRequests(t *testing.T) {
	r, _ := setupRouter(t, nil)

	tests := []struct {
		name  string
		body  string
		error string
	}{
		{name: "empty transcript", body: `{"transcript":"","duration":30}`, error: "Please provide a transcript text."},
		{name: "whitespace transcript", body: `{"transcript":"  \n ","duration":30}`, error: "Please provide a transcript text."},
		{name: "zero duration", body: `{"transcript":"Hello","duration":0}`, error: "Please provide a valid duration (in seconds)."},
		{name: "negative duration", body: `{"transcript":"Hello","duration":-5}`, error: "Please provide a valid duration (in seconds)."},
		{name: "sub-second duration", body: `{"transcript":"Hello","duration":0.5}`, error: "Please provide a valid duration (in seconds)."},
		{name: "malformed JSON", body: `{"transcript":`, error: "Invalid request body"},
		{name: "duration as string", body: `{"transcript":"Hello","duration":"52"}`, error: "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/evaluate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.error)
			assert.Equal(t, "validation", body["category"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestEvaluateEndpoint_Cached(t *testing.T) {
	r, s := setupRouter(t, nil)

	first := do(r, http.MethodPost, "/evaluate", sampleBody(t))
	second := do(r, http.MethodPost, "/evaluate", sampleBody(t))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	stats := s.app.Metrics.GetStats()
	assert.Equal(t, int64(1), stats["cache_hits"])
	assert.Equal(t, int64(1), stats["evaluations"], "the cached response skips the evaluator")

	w := do(r, http.MethodGet, "/cache/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backend":"memory"`)
}

func TestEvaluateEndpoint_CollaboratorFailureNotCached(t *testing.T) {
	lt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer lt.Close()

	r, s := setupRouter(t, func(c *config.Config) { c.LanguageTool.URL = lt.URL })

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/evaluate", sampleBody(t))
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.EvaluateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Results.Scores.LanguageAndGrammar.Details.Grammar.Error)
	}

	assert.Equal(t, int64(0), s.app.Metrics.GetStats()["cache_hits"])
}

func TestEvaluateEndpoint_RateLimited(t *testing.T) {
	r, _ := setupRouter(t, func(c *config.Config) { c.RateLimit.PerMinute = 2 })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(r, http.MethodPost, "/evaluate", `{"transcript":"Hi there","duration":5}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := do(r, http.MethodGet, "/ratelimit/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":0`)
}

func TestSampleEndpoint(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/sample", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.SampleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, analysis.SampleTranscript, resp.Transcript)
	assert.Equal(t, 52, resp.Duration)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Endpoint-Limit"))
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := setupRouter(t, nil)

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{name: "GET /health returns OK", method: http.MethodGet, expectedStatus: http.StatusOK},
		{name: "POST /health is not routed", method: http.MethodPost, expectedStatus: http.StatusNotFound},
		{name: "DELETE /health is not routed", method: http.MethodDelete, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, "/health", "")
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	w := do(r, http.MethodGet, "/health", "")
	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "dev", resp.Version)
	assert.False(t, resp.Semantic)
	assert.Equal(t, map[string]any{app.ServiceSentiment: "in_process"}, resp.Collaborators)
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	lt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer lt.Close()

	r, s := setupRouter(t, func(c *config.Config) { c.LanguageTool.URL = lt.URL })

	for i := 0; i < 10; i++ {
		s.app.Health.RecordResult(adapters.ServiceLanguageTool, errors.New("connection refused"))
	}

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp types.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "emergency", resp.Collaborators[adapters.ServiceLanguageTool])

	w = do(r, http.MethodGet, "/health/services", "")
	require.Equal(t, http.StatusOK, w.Code)
	var services map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &services))
	assert.Contains(t, services, "services")
	assert.Contains(t, services["circuit_breakers"], adapters.ServiceLanguageTool)
}

func TestMetricsEndpoints(t *testing.T) {
	r, _ := setupRouter(t, nil)
	do(r, http.MethodPost, "/evaluate", `{"transcript":"Hello everyone","duration":5}`)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, float64(2), stats["total_requests"], "the /metrics request itself is counted")
	assert.Equal(t, float64(1), stats["evaluations"])

	w = do(r, http.MethodGet, "/metrics/prometheus", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "introscore_http_requests_total")
	assert.Contains(t, w.Body.String(), "introscore_evaluations_total")
}

func TestRateLimitReset(t *testing.T) {
	r, _ := setupRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/ratelimit/reset", "").Code,
		"reset is only routed when an admin token is configured")

	r, _ = setupRouter(t, func(c *config.Config) { c.RateLimit.AdminToken = "s3cret" })
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/ratelimit/reset", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/ratelimit/reset", "", "X-Admin-Token", "s3cret").Code)
}

func TestCORS(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := do(r, http.MethodGet, "/sample", "", "Origin", "https://school.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	r, _ = setupRouter(t, func(c *config.Config) { c.CORS.AllowedOrigins = []string{"https://school.example"} })
	w = do(r, http.MethodGet, "/sample", "", "Origin", "https://school.example")
	assert.Equal(t, "https://school.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(r, http.MethodGet, "/sample", "", "Origin", "https://elsewhere.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSwaggerDoc(t *testing.T) {
	r, _ := setupRouter(t, nil)
	w := do(r, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "introscore API")
	assert.Contains(t, w.Body.String(), "/evaluate")
}

func TestEvaluateEndpoint_Timeout(t *testing.T) {
	lt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	defer lt.Close()

	r, _ := setupRouter(t, func(c *config.Config) {
		c.LanguageTool.URL = lt.URL
		c.RequestTimeout = 50 * time.Millisecond
	})

	w := do(r, http.MethodPost, "/evaluate", sampleBody(t))
	assert.NotEqual(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"timeout"`)
}

func TestEvaluateEndpoint_RejectsHostileInput(t *testing.T) {
	r, _ := setupRouter(t, nil)

	long, err := json.Marshal(types.EvaluateRequest{Transcript: strings.Repeat("word ", 5000), Duration: 60})
	require.NoError(t, err)

	w := do(r, http.MethodPost, "/evaluate", string(long))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "too long")

	w = do(r, http.MethodPost, "/evaluate", `{"transcript":"Hi\u0000there","duration":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader("transcript=hi&duration=5"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r, _ := setupRouter(t, nil)

	w := do(r, http.MethodGet, "/sample", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	w = do(r, http.MethodGet, "/swagger/doc.json", "")
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))

	r, _ = setupRouter(t, func(c *config.Config) { c.Security.HSTS = true })
	w = do(r, http.MethodGet, "/sample", "")
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

// countingReader yields n bytes of JSON-ish filler and records how many
// were consumed
type countingReader struct {
	remaining int
	read      int
}

func (r *countingReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}
	n := min(len(p), r.remaining)
	for i := range p[:n] {
		p[i] = 'a'
	}
	r.remaining -= n
	r.read += n
	return n, nil
}

func TestEvaluateEndpoint_OversizedBody(t *testing.T) {
	r, _ := setupRouter(t, nil)

	tests := []struct {
		name          string
		contentLength int64
		maxRead       int
	}{
		{name: "declared length", contentLength: 8 << 20, maxRead: 0},
		{name: "streamed", contentLength: -1, maxRead: 2 * maxBodyBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &countingReader{remaining: 8 << 20}
			req := httptest.NewRequest(http.MethodPost, "/evaluate", body)
			req.Header.Set("Content-Type", "application/json")
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
			assert.Contains(t, w.Body.String(), `"category":"validation"`)
			assert.LessOrEqual(t, body.read, tt.maxRead, "body must not be read past the cap")
		})
	}
}
