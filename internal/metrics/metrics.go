// Package metrics exposes Prometheus collectors for the HTTP layer and the
// ICS importer on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventcal/internal/config"
)

// Metrics is safe for concurrent use. A disabled instance accepts every
// call and records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	importRuns     *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	importedEvents *prometheus.CounterVec
	importErrors   *prometheus.CounterVec

	registry *prometheus.Registry
}

// New builds the collectors for cfg. When cfg.Enabled is false it returns
// a no-op instance.
func New(cfg config.MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return &Metrics{}
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),

		importRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_runs_total",
				Help:      "Total number of calendar imports",
			},
			[]string{"calendar", "status"},
		),
		importDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of calendar imports in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"calendar"},
		),
		importedEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imported_events_total",
				Help:      "Total number of events saved by the importer",
			},
			[]string{"calendar"},
		),
		importErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_event_errors_total",
				Help:      "Total number of events the importer failed to save",
			},
			[]string{"calendar"},
		),
	}

	registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.importRuns,
		m.importDuration,
		m.importedEvents,
		m.importErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Enabled reports whether the instance records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordRequest records one served HTTP request. route is the matched
// route pattern, not the raw path.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(route, code).Inc()
	m.requestDuration.WithLabelValues(route, code).Observe(duration.Seconds())
}

// RecordImport records one calendar import with the number of events
// saved and failed.
func (m *Metrics) RecordImport(calendar string, saved, failed int, duration time.Duration, err error) {
	if !m.Enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.importRuns.WithLabelValues(calendar, status).Inc()
	m.importDuration.WithLabelValues(calendar).Observe(duration.Seconds())
	m.importedEvents.WithLabelValues(calendar).Add(float64(saved))
	m.importErrors.WithLabelValues(calendar).Add(float64(failed))
}

// Handler serves the exposition format. A disabled instance answers 404.
func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
