// Package metrics holds the Prometheus collectors of the API and the export worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Export outcomes recorded by ObserveExport.
const (
	ExportExported  = "exported"
	ExportDuplicate = "duplicate"
	ExportDropped   = "dropped"
	ExportRetry     = "retry"
)

// Metrics owns a private registry so every process, and every test, starts
// from zero. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	dashboardCache  *prometheus.CounterVec
	exportsQueued   prometheus.Counter
	exportsHandled  *prometheus.CounterVec
	exportDurations prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saldo_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saldo_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"route"},
		),
		dashboardCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saldo_dashboard_cache_total",
				Help: "Dashboard cache lookups by result",
			},
			[]string{"result"},
		),
		exportsQueued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "saldo_exports_queued_total",
				Help: "Metrics export requests published to the queue",
			},
		),
		exportsHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saldo_exports_handled_total",
				Help: "Export messages handled by the worker, by outcome",
			},
			[]string{"outcome"},
		),
		exportDurations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "saldo_export_duration_seconds",
				Help:    "Time to compute and write one metrics row",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveDashboardCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.dashboardCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ExportQueued() {
	if m == nil {
		return
	}
	m.exportsQueued.Inc()
}

// ObserveExport records the outcome of one export message. Duration is only
// observed for rows that were actually written.
func (m *Metrics) ObserveExport(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exportsHandled.WithLabelValues(outcome).Inc()
	if outcome == ExportExported {
		m.exportDurations.Observe(elapsed.Seconds())
	}
}
