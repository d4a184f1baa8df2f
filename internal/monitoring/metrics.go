// Package monitoring collects Prometheus metrics for the management surface
// and the outbound dispatch path.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Management API metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Outbound dispatch metrics
	SendsTotal   *prometheus.CounterVec
	SendDuration *prometheus.HistogramVec

	// Cookie engine metrics
	CookieResolutions prometheus.Counter

	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restgate_http_requests_total",
			Help: "Management API requests by method, path and status",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restgate_http_request_duration_seconds",
			Help:    "Management API request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		SendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "restgate_sends_total",
			Help: "Outbound dispatches by proxy source and outcome",
		}, []string{"proxy_source", "outcome"}),

		SendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "restgate_send_duration_seconds",
			Help:    "Outbound dispatch duration including redirects",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"proxy_source"}),

		CookieResolutions: factory.NewCounter(prometheus.CounterOpts{
			Name: "restgate_cookie_resolutions_total",
			Help: "Cookie resolution computations",
		}),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "restgate_uptime_seconds",
			Help: "Seconds since the agent started",
		}),

		startTime: time.Now(),
	}
	return m
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one management API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordSend records one outbound dispatch. source is empty when the request
// failed before proxy resolution.
func (m *Metrics) RecordSend(source, outcome string, duration time.Duration) {
	if source == "" {
		source = "unresolved"
	}
	m.SendsTotal.WithLabelValues(source, outcome).Inc()
	m.SendDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordCookieResolution records one resolution computation.
func (m *Metrics) RecordCookieResolution() {
	m.CookieResolutions.Inc()
}
