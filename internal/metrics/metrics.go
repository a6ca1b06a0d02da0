// Package metrics exposes Sidekick's Prometheus instrumentation.
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

// Metrics holds the collectors for one daemon. Each instance owns its own
// registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	Transforms        *prometheus.CounterVec
	TransformDuration *prometheus.HistogramVec
	ClipboardUpdates  prometheus.Counter
	PlansExecuted     *prometheus.CounterVec
	RPCRequests       *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	ActiveClients     prometheus.Gauge
}

// New creates a Metrics with a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Transforms: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidekick_transforms_total",
				Help: "Total number of text transforms",
			},
			[]string{"operation", "provider", "result"},
		),
		TransformDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sidekick_transform_duration_seconds",
				Help:    "Text transform latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		ClipboardUpdates: f.NewCounter(
			prometheus.CounterOpts{
				Name: "sidekick_clipboard_updates_total",
				Help: "Total number of clipboard-update events emitted",
			},
		),
		PlansExecuted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidekick_plans_executed_total",
				Help: "Total number of executed agent plans",
			},
			[]string{"action", "status"},
		),
		RPCRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidekick_gateway_requests_total",
				Help: "Total number of gateway RPC requests",
			},
			[]string{"method", "status"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sidekick_http_requests_total",
				Help: "Total number of gateway HTTP requests",
			},
			[]string{"path", "code"},
		),
		ActiveClients: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "sidekick_gateway_clients",
				Help: "Number of connected gateway clients",
			},
		),
	}
}

// ObserveTransform records one transform. result is "ok" or an error kind.
func (m *Metrics) ObserveTransform(operation, provider, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Transforms.WithLabelValues(operation, provider, result).Inc()
	m.TransformDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObservePlan records an executed plan.
func (m *Metrics) ObservePlan(action, status string) {
	if m == nil {
		return
	}
	m.PlansExecuted.WithLabelValues(action, status).Inc()
}

// ObserveRPC records a gateway request. status is "ok" or an error code.
func (m *Metrics) ObserveRPC(method, status string) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(method, status).Inc()
}

// ObserveHTTP records a gateway HTTP request. Unknown paths share one
// label so scanners cannot grow the series count.
func (m *Metrics) ObserveHTTP(path string, code int) {
	if m == nil {
		return
	}
	switch path {
	case "/health", "/ws", "/metrics":
	default:
		path = "other"
	}
	m.HTTPRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

// ClipboardUpdate increments the clipboard-update counter.
func (m *Metrics) ClipboardUpdate() {
	if m == nil {
		return
	}
	m.ClipboardUpdates.Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
