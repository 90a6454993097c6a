package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus registry. All recording methods are
// safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	buildInfo   *prometheus.GaugeVec
	requests    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "repair_service_build_info",
			Help: "Build information for repair-service",
		},
		[]string{"version"},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_service_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"path", "method", "status"},
	)
	durations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repair_service_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	errors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_service_http_errors_total",
			Help: "HTTP error responses by route, method and error code",
		},
		[]string{"path", "method", "code"},
	)
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repair_service_ticket_operations_total",
			Help: "Ticket lifecycle operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		buildInfo,
		requests,
		durations,
		errors,
		transitions,
	)

	return &Metrics{
		registry:    registry,
		buildInfo:   buildInfo,
		requests:    requests,
		durations:   durations,
		errors:      errors,
		transitions: transitions,
	}
}

// RecordBuildInfo publishes the running version.
func (m *Metrics) RecordBuildInfo(version string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version).Set(1)
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordOperation counts a ticket operation; outcome is "ok" or an error code.
func (m *Metrics) RecordOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
