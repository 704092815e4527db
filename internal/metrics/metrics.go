// Package metrics exposes orchestration counters for Prometheus scraping.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ea"

// Collector holds the request and action metrics. A nil *Collector is a no-op.
type Collector struct {
	requestsSubmitted *prometheus.CounterVec
	requestsRejected  *prometheus.CounterVec
	requestsFinished  *prometheus.CounterVec
	actions           *prometheus.CounterVec
	activeRequests    prometheus.Gauge
	stepLatency       prometheus.Histogram
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewCollector registers every metric on reg. A *prometheus.Registry is also used
// as the gatherer for Handler; other registerers fall back to the default gatherer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		requestsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_submitted_total",
			Help:      "Requests accepted and registered, by action kind",
		}, []string{"kind"}),
		requestsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_rejected_total",
			Help:      "Requests rejected before registration, by reason",
		}, []string{"reason"}),
		requestsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_finished_total",
			Help:      "Requests that reached a terminal status",
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Per-account actions performed, by kind and outcome",
		}, []string{"kind", "outcome"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_active",
			Help:      "Requests currently running",
		}),
		stepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_latency_seconds",
			Help:      "Transport latency of a single action",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests served, by method, route and status code",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route"}),
		gatherer: prometheus.DefaultGatherer,
	}

	reg.MustRegister(
		c.requestsSubmitted,
		c.requestsRejected,
		c.requestsFinished,
		c.actions,
		c.activeRequests,
		c.stepLatency,
		c.httpRequests,
		c.httpLatency,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}

	return c
}

func (c *Collector) RequestSubmitted(kind string) {
	if c == nil {
		return
	}
	c.requestsSubmitted.WithLabelValues(kind).Inc()
	c.activeRequests.Inc()
}

func (c *Collector) RequestRejected(reason string) {
	if c == nil {
		return
	}
	c.requestsRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) RequestFinished(status string) {
	if c == nil {
		return
	}
	c.requestsFinished.WithLabelValues(status).Inc()
	c.activeRequests.Dec()
}

func (c *Collector) ActionPerformed(kind, outcome string, latencySeconds float64) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(kind, outcome).Inc()
	c.stepLatency.Observe(latencySeconds)
}

func (c *Collector) HTTPRequest(method, route string, status int, latencySeconds float64) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(latencySeconds)
}

// Handler serves the registry the collector was registered on.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
