package observability

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// Every method is safe on a nil receiver so callers need no enabled checks.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	conversionFallbacks *prometheus.CounterVec
	forkSize            prometheus.Histogram
	treeBuilds          *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process-wide metrics, or nil before Init.
func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once. It returns nil when disabled.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("prometheus metrics enabled")
		}
	})
	return instance
}

// New creates an independent metrics set with Go runtime and process
// collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursestore_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursestore_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coursestore_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursestore_aggregate_operations_total",
			Help: "Aggregate writes by operation and outcome code.",
		}, []string{"op", "status"}),
		aggregateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coursestore_aggregate_operation_duration_seconds",
			Help:    "Aggregate write latency including lock wait.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursestore_aggregate_conflicts_total",
			Help: "Aggregate writes rejected with a conflict.",
		}, []string{"op"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursestore_aggregate_retryable_total",
			Help: "Aggregate writes failed with a retryable error.",
		}, []string{"op"}),
		conversionFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursestore_content_conversion_fallbacks_total",
			Help: "Derived content formats stored as unavailable.",
		}, []string{"format"}),
		forkSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "coursestore_fork_sections",
			Help:    "Sections copied per fork.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		treeBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coursestore_tree_builds_total",
			Help: "Course tree assemblies by outcome; shared marks collapsed concurrent reads.",
		}, []string{"status", "shared"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.conversionFallbacks, m.forkSize, m.treeBuilds,
	)
	return m
}

// RegisterDBStats exports connection pool stats for db under dbName.
func (m *Metrics) RegisterDBStats(db *sql.DB, dbName string) error {
	if m == nil || db == nil {
		return nil
	}
	return m.registry.Register(collectors.NewDBStatsCollector(db, dbName))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.WithLabelValues(op, status).Inc()
	m.aggregateLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) IncConversionFallback(format string) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	m.conversionFallbacks.WithLabelValues(format).Inc()
}

func (m *Metrics) ObserveForkSize(sections int) {
	if m == nil {
		return
	}
	m.forkSize.Observe(float64(sections))
}

func (m *Metrics) IncTreeBuild(status string, shared bool) {
	if m == nil {
		return
	}
	s := "false"
	if shared {
		s = "true"
	}
	m.treeBuilds.WithLabelValues(status, s).Inc()
}
