package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// GraphQL pipeline metrics
	OperationsTotal       *prometheus.CounterVec
	OperationDuration     *prometheus.HistogramVec
	OperationRetriesTotal *prometheus.CounterVec
	OperationErrorsTotal  *prometheus.CounterVec
	TokenInjectionsTotal  *prometheus.CounterVec

	// Query cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Session metrics
	SessionsNormalizedTotal *prometheus.CounterVec
	SessionsExpiredTotal    prometheus.Counter
	SessionsReapedTotal     prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// creates a private one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_http_requests_total",
				Help: "Total number of HTTP requests served by the gateway",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novo_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_graphql_operations_total",
				Help: "Total number of GraphQL operations issued through the pipeline",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "novo_graphql_operation_duration_seconds",
				Help:    "GraphQL operation duration in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_graphql_retries_total",
				Help: "Total number of GraphQL operation retries",
			},
			[]string{"operation"},
		),
		OperationErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_graphql_errors_total",
				Help: "Total number of classified GraphQL errors",
			},
			[]string{"operation", "kind"},
		),
		TokenInjectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_graphql_token_injections_total",
				Help: "Outcome of bearer token injection per operation",
			},
			[]string{"result"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_graphql_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"operation"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_graphql_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"operation"},
		),
		SessionsNormalizedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "novo_sessions_normalized_total",
				Help: "Total number of normalized sessions by resulting state",
			},
			[]string{"state"},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "novo_sessions_expired_total",
				Help: "Total number of expiry checks that found an elapsed session",
			},
		),
		SessionsReapedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "novo_sessions_reaped_total",
				Help: "Total number of stale sessions removed by the reaper",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OperationsTotal,
		m.OperationDuration,
		m.OperationRetriesTotal,
		m.OperationErrorsTotal,
		m.TokenInjectionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SessionsNormalizedTotal,
		m.SessionsExpiredTotal,
		m.SessionsReapedTotal,
	)

	return m
}

// Registry returns the registry the metrics were registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation records a completed GraphQL operation
func (m *Metrics) RecordOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRetry records a retry of operation
func (m *Metrics) RecordRetry(operation string) {
	if m == nil {
		return
	}
	m.OperationRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordOperationError records a classified error ("graphql" or "network")
func (m *Metrics) RecordOperationError(operation, kind string) {
	if m == nil {
		return
	}
	m.OperationErrorsTotal.WithLabelValues(operation, kind).Inc()
}

// RecordTokenInjection records whether a bearer token was attached
func (m *Metrics) RecordTokenInjection(result string) {
	if m == nil {
		return
	}
	m.TokenInjectionsTotal.WithLabelValues(result).Inc()
}

// RecordCacheHit records a response cache hit
func (m *Metrics) RecordCacheHit(operation string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(operation).Inc()
}

// RecordCacheMiss records a response cache miss
func (m *Metrics) RecordCacheMiss(operation string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(operation).Inc()
}

// RecordSessionNormalized records a normalization by resulting state
func (m *Metrics) RecordSessionNormalized(state string) {
	if m == nil {
		return
	}
	m.SessionsNormalizedTotal.WithLabelValues(state).Inc()
}

// RecordSessionExpired records an elapsed expiry check
func (m *Metrics) RecordSessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpiredTotal.Inc()
}

// RecordSessionsReaped records how many stale sessions the reaper removed
func (m *Metrics) RecordSessionsReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsReapedTotal.Add(float64(n))
}

// MetricsMiddleware records request counts and durations for every request.
// path should be a route template to keep label cardinality bounded.
func MetricsMiddleware(m *Metrics, path func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)
			m.RecordHTTPRequest(r.Method, path(r), rw.status, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
