package middleware

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestsInProgress prometheus.Gauge
	exportsTotal       *prometheus.CounterVec
	imagesDegraded     prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentest_report_http_requests_total",
			Help: "HTTP requests by method and status class",
		},
		[]string{"method", "class"},
	)
	m.requestsInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pentest_report_http_requests_in_progress",
		Help: "HTTP requests currently being served",
	})
	m.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pentest_report_exports_total",
			Help: "Report exports by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	m.imagesDegraded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pentest_report_images_degraded_total",
		Help: "Screenshots rendered as an empty slot",
	})

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestsInProgress,
		m.exportsTotal,
		m.imagesDegraded,
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ExportFinished implements reports.Recorder.
func (m *Metrics) ExportFinished(kind reports.Kind, outcome string) {
	m.exportsTotal.WithLabelValues(string(kind), outcome).Inc()
}

// ImageDegraded implements reports.Recorder.
func (m *Metrics) ImageDegraded() { m.imagesDegraded.Inc() }

var _ reports.Recorder = (*Metrics)(nil)

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInProgress.Inc()
		defer m.requestsInProgress.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		class := strconv.Itoa(wrapped.statusCode/100) + "xx"
		m.requestsTotal.WithLabelValues(r.Method, class).Inc()
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
