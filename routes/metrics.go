package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alert_relay"

const (
	outcomeDelivered      = "delivered"
	outcomeMalformed      = "malformed"
	outcomeRenderError    = "render_error"
	outcomeTransportError = "transport_error"
	outcomeRejected       = "rejected"
)

// Metrics holds the relay's collectors and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry

	notifications   *prometheus.CounterVec
	sendDuration    *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the relay collectors on reg. A nil reg gets a fresh
// registry, which keeps tests independent of each other.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: reg,
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications received on /alert, by final outcome.",
		}, []string{"outcome"}),
		sendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "send_duration_seconds",
			Help:      "Duration of provider webhook calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by handler and status code.",
		}, []string{"handler", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests, by handler.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}

	for _, o := range []string{outcomeDelivered, outcomeMalformed, outcomeRenderError, outcomeTransportError, outcomeRejected} {
		m.notifications.WithLabelValues(o)
	}

	reg.MustRegister(
		m.notifications,
		m.sendDuration,
		m.requests,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		versioncollector.NewCollector("alert_relay"),
	)
	return m
}

func (m *Metrics) outcome(o string) {
	m.notifications.WithLabelValues(o).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
