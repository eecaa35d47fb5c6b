package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for configd.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Registry (storage-backend) metrics
	RegistryOperationsTotal   *prometheus.CounterVec
	RegistryOperationDuration *prometheus.HistogramVec
	RegistryErrorsTotal       *prometheus.CounterVec

	// validate() outcome metrics
	ValidateRunsTotal      *prometheus.CounterVec
	ValidateDuration       *prometheus.HistogramVec
	ValidateOutcomesTotal  *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	// Nightly reconciliation metrics
	ReconcileRunsTotal   *prometheus.CounterVec
	ReconcileDriftTotal  *prometheus.CounterVec
	ReconcileDuration    prometheus.Histogram

	// Registry contents
	SchemasTotal prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propconf_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propconf_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propconf_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		RegistryOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_registry_operations_total",
				Help: "Total number of registry backend operations",
			},
			[]string{"operation", "backend", "status"},
		),
		RegistryOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propconf_registry_operation_duration_seconds",
				Help:    "Registry backend operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		RegistryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_registry_errors_total",
				Help: "Total number of registry backend errors",
			},
			[]string{"operation", "backend", "error_type"},
		),

		ValidateRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_validate_runs_total",
				Help: "Total number of validate() calls",
			},
			[]string{"schema_name", "role"},
		),
		ValidateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "propconf_validate_duration_seconds",
				Help:    "validate() call duration in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
			},
			[]string{"schema_name"},
		),
		ValidateOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_validate_outcomes_total",
				Help: "Total number of per-property outcomes, by outcome kind",
			},
			[]string{"schema_name", "outcome_kind"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_cache_hits_total",
				Help: "Total number of compiled schema cache hits",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_cache_misses_total",
				Help: "Total number of compiled schema cache misses",
			},
			[]string{"tier"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_cache_evictions_total",
				Help: "Total number of compiled schema cache evictions",
			},
			[]string{"tier", "reason"},
		),

		ReconcileRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_reconcile_runs_total",
				Help: "Total number of nightly reconciliation sweeps, by result",
			},
			[]string{"status"},
		),
		ReconcileDriftTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "propconf_reconcile_drift_total",
				Help: "Total number of stored configurations found to have drifted from the latest schema",
			},
			[]string{"schema_name"},
		),
		ReconcileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "propconf_reconcile_duration_seconds",
				Help:    "Nightly reconciliation sweep duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		SchemasTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "propconf_schemas_total",
				Help: "Total number of distinct schema names in the registry",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.RegistryOperationsTotal,
		m.RegistryOperationDuration,
		m.RegistryErrorsTotal,
		m.ValidateRunsTotal,
		m.ValidateDuration,
		m.ValidateOutcomesTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.ReconcileRunsTotal,
		m.ReconcileDriftTotal,
		m.ReconcileDuration,
		m.SchemasTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
