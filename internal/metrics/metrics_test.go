package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCountsRequestLifecycle(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RequestSubmitted("upvote")
	collector.RequestSubmitted("comment")
	collector.RequestFinished("cooldown")
	collector.RequestRejected("cooldown")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.requestsSubmitted.WithLabelValues("upvote")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.requestsRejected.WithLabelValues("cooldown")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.activeRequests))
}

func TestCollectorActionOutcomes(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	for _, latency := range []float64{0.01, 0.2, 1.5} {
		collector.ActionPerformed("downvote", "ok", latency)
	}
	collector.ActionPerformed("downvote", "failed", 0.3)

	assert.Equal(t, float64(3), testutil.ToFloat64(collector.actions.WithLabelValues("downvote", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.actions.WithLabelValues("downvote", "failed")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.RequestSubmitted("upvote")
		collector.RequestRejected("busy")
		collector.RequestFinished("aborted")
		collector.ActionPerformed("upvote", "ok", 0.1)
		collector.HTTPRequest("GET", "/health", 200, 0.001)
	})
	assert.NotNil(t, collector.Handler())
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())
	collector.RequestSubmitted("comment")

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ea_requests_submitted_total{kind="comment"} 1`)
	assert.Contains(t, rec.Body.String(), "ea_requests_active 1")
}

func TestCollectorHTTPRequests(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.HTTPRequest(http.MethodPost, "/api/v1/requests", http.StatusAccepted, 0.02)
	collector.HTTPRequest(http.MethodPost, "/api/v1/requests", http.StatusTooManyRequests, 0.01)
	collector.HTTPRequest(http.MethodPost, "/api/v1/requests", http.StatusAccepted, 0.03)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.httpRequests.WithLabelValues("POST", "/api/v1/requests", "202")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.httpRequests.WithLabelValues("POST", "/api/v1/requests", "429")))
}
