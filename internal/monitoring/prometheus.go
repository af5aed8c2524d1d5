package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introscore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "introscore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introscore_evaluations_total",
			Help: "Completed evaluations by letter grade",
		},
		[]string{"grade"},
	)

	evaluationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "introscore_evaluation_final_score",
			Help:    "Distribution of final scores out of 100",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "introscore_evaluation_duration_seconds",
			Help:    "Time spent scoring one transcript",
			Buckets: prometheus.DefBuckets,
		},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introscore_fallbacks_total",
			Help: "Evaluations that fell back because a collaborator was unavailable",
		},
		[]string{"collaborator"},
	)

	collaboratorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introscore_collaborator_calls_total",
			Help: "Calls to grammar, sentiment and embedding collaborators",
		},
		[]string{"service", "outcome"},
	)

	collaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "introscore_collaborator_duration_seconds",
			Help:    "Collaborator call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introscore_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	rateLimitBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "introscore_rate_limit_blocks_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

func observeHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, statusClass(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func observeEvaluation(finalScore int, grade string, fallbacks []string, duration time.Duration) {
	evaluationsTotal.WithLabelValues(grade).Inc()
	evaluationScore.Observe(float64(finalScore))
	evaluationDuration.Observe(duration.Seconds())
	for _, f := range fallbacks {
		fallbacksTotal.WithLabelValues(f).Inc()
	}
}

func observeCollaborator(service string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	collaboratorCalls.WithLabelValues(service, outcome).Inc()
	collaboratorDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return strconv.Itoa(code)
	}
}

// PrometheusHandler serves the default registry in text exposition format
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
