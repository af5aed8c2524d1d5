package monitoring

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const maxResponseSamples = 1000

// Metrics holds in-process counters for the /metrics endpoint. Every
// recording method also feeds the Prometheus collectors.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	EvaluationCount     int64
	ScoreTotal          int64
	AverageResponseTime int64 // nanoseconds, running average
	StartTime           time.Time

	responseTimes []time.Duration
	responseMu    sync.RWMutex

	statusCounts map[int]int64
	grades       map[string]int64
	fallbacks    map[string]int64
	countsMu     sync.RWMutex

	collaboratorCalls  map[string]int64
	collaboratorErrors map[string]int64
	collaboratorMu     sync.RWMutex

	RateLimitIPBlocks      int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64
	rateLimitEndpoints     map[string]int64
	rateLimitMu            sync.RWMutex
}

func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:          time.Now(),
		responseTimes:      make([]time.Duration, 0, maxResponseSamples),
		statusCounts:       make(map[int]int64),
		grades:             make(map[string]int64),
		fallbacks:          make(map[string]int64),
		collaboratorCalls:  make(map[string]int64),
		collaboratorErrors: make(map[string]int64),
		rateLimitEndpoints: make(map[string]int64),
	}
}

func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
	cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
	cacheLookups.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest records one finished request
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	if current == 0 {
		atomic.StoreInt64(&m.AverageResponseTime, duration.Nanoseconds())
	} else {
		atomic.StoreInt64(&m.AverageResponseTime, (current+duration.Nanoseconds())/2)
	}

	m.responseMu.Lock()
	m.responseTimes = append(m.responseTimes, duration)
	if len(m.responseTimes) > maxResponseSamples {
		m.responseTimes = m.responseTimes[1:]
	}
	m.responseMu.Unlock()

	m.countsMu.Lock()
	m.statusCounts[statusCode]++
	m.countsMu.Unlock()

	observeHTTPRequest(method, route, statusCode, duration)
}

// RecordEvaluation records the outcome of one evaluation
func (m *Metrics) RecordEvaluation(finalScore int, grade string, fallbacks []string, duration time.Duration) {
	atomic.AddInt64(&m.EvaluationCount, 1)
	atomic.AddInt64(&m.ScoreTotal, int64(finalScore))

	m.countsMu.Lock()
	m.grades[grade]++
	for _, f := range fallbacks {
		m.fallbacks[f]++
	}
	m.countsMu.Unlock()

	observeEvaluation(finalScore, grade, fallbacks, duration)
}

// RecordCollaboratorCall records one call to a grammar, sentiment or
// embedding collaborator
func (m *Metrics) RecordCollaboratorCall(service string, duration time.Duration, err error) {
	m.collaboratorMu.Lock()
	m.collaboratorCalls[service]++
	if err != nil {
		m.collaboratorErrors[service]++
	}
	m.collaboratorMu.Unlock()

	observeCollaborator(service, duration, err)
}

func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
	rateLimitBlocks.WithLabelValues("ip").Inc()
}

func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.rateLimitMu.Lock()
	m.rateLimitEndpoints[endpoint]++
	m.rateLimitMu.Unlock()
	rateLimitBlocks.WithLabelValues("endpoint").Inc()
}

// GetPercentileResponseTime returns the p-th percentile of the recent samples
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.responseMu.RLock()
	times := make([]time.Duration, len(m.responseTimes))
	copy(times, m.responseTimes)
	m.responseMu.RUnlock()

	if len(times) == 0 {
		return 0
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}
	return times[index]
}

// GetCollaboratorStats returns call and error counts per collaborator
func (m *Metrics) GetCollaboratorStats() map[string]any {
	m.collaboratorMu.RLock()
	defer m.collaboratorMu.RUnlock()

	stats := make(map[string]any, len(m.collaboratorCalls))
	for service, calls := range m.collaboratorCalls {
		errs := m.collaboratorErrors[service]
		stats[service] = map[string]any{
			"calls":      calls,
			"errors":     errs,
			"error_rate": ratio(errs, calls),
		}
	}
	return stats
}

// GetRateLimitStats returns rate limiting counters
func (m *Metrics) GetRateLimitStats() map[string]any {
	m.rateLimitMu.RLock()
	endpoints := make(map[string]int64, len(m.rateLimitEndpoints))
	for k, v := range m.rateLimitEndpoints {
		endpoints[k] = v
	}
	m.rateLimitMu.RUnlock()

	return map[string]any{
		"ip_blocks":       atomic.LoadInt64(&m.RateLimitIPBlocks),
		"redis_errors":    atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.RateLimitFallbackCount),
		"endpoint_blocks": endpoints,
	}
}

// GetStats returns a JSON-friendly snapshot of every counter
func (m *Metrics) GetStats() map[string]any {
	requests := atomic.LoadInt64(&m.RequestCount)
	errs := atomic.LoadInt64(&m.ErrorCount)
	hits := atomic.LoadInt64(&m.CacheHits)
	misses := atomic.LoadInt64(&m.CacheMisses)
	evaluations := atomic.LoadInt64(&m.EvaluationCount)

	averageScore := 0.0
	if evaluations > 0 {
		averageScore = float64(atomic.LoadInt64(&m.ScoreTotal)) / float64(evaluations)
	}

	m.countsMu.RLock()
	status := make(map[string]int64, len(m.statusCounts))
	for code, n := range m.statusCounts {
		status[strconv.Itoa(code)] = n
	}
	grades := copyCounts(m.grades)
	fallbacks := copyCounts(m.fallbacks)
	m.countsMu.RUnlock()

	return map[string]any{
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"start_time":               m.StartTime.Format(time.RFC3339),
		"total_requests":           requests,
		"error_count":              errs,
		"error_rate_percent":       ratio(errs, requests) * 100,
		"cache_hits":               hits,
		"cache_misses":             misses,
		"cache_hit_rate_percent":   ratio(hits, hits+misses) * 100,
		"avg_response_time_ms":     float64(atomic.LoadInt64(&m.AverageResponseTime)) / 1e6,
		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": status,
		"evaluations":              evaluations,
		"average_final_score":      averageScore,
		"grade_distribution":       grades,
		"fallbacks":                fallbacks,
		"collaborators":            m.GetCollaboratorStats(),
		"rate_limit":               m.GetRateLimitStats(),
	}
}

// Reset zeroes every counter. Prometheus collectors are cumulative and
// are left alone.
func (m *Metrics) Reset() {
	for _, p := range []*int64{
		&m.RequestCount, &m.ErrorCount, &m.CacheHits, &m.CacheMisses,
		&m.EvaluationCount, &m.ScoreTotal, &m.AverageResponseTime,
		&m.RateLimitIPBlocks, &m.RateLimitRedisErrors, &m.RateLimitFallbackCount,
	} {
		atomic.StoreInt64(p, 0)
	}

	m.responseMu.Lock()
	m.responseTimes = m.responseTimes[:0]
	m.responseMu.Unlock()

	m.countsMu.Lock()
	m.statusCounts = make(map[int]int64)
	m.grades = make(map[string]int64)
	m.fallbacks = make(map[string]int64)
	m.countsMu.Unlock()

	m.collaboratorMu.Lock()
	m.collaboratorCalls = make(map[string]int64)
	m.collaboratorErrors = make(map[string]int64)
	m.collaboratorMu.Unlock()

	m.rateLimitMu.Lock()
	m.rateLimitEndpoints = make(map[string]int64)
	m.rateLimitMu.Unlock()

	m.StartTime = time.Now()
}

func ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
