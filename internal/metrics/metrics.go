// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the gateway's metrics. It satisfies the
// metrics interfaces of the session manager and the fetch client.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	backendStatus *prometheus.CounterVec
	authRetries   prometheus.Counter

	refreshSkipped   prometheus.Counter
	refreshSucceeded prometheus.Counter
	refreshFailed    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the registry
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Handled gateway requests by method and status code",
		}, []string{"method", "status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_backend_status_total",
			Help: "Backend responses by status code",
		}, []string{"status_code"}),
		authRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_auth_retries_total",
			Help: "Outbound calls retried after a 401/403",
		}),
		refreshSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_token_refresh_skipped_total",
			Help: "Refreshes resolved on the hot path without a network call",
		}),
		refreshSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_token_refresh_success_total",
			Help: "Successful access token refreshes",
		}),
		refreshFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_token_refresh_fail_total",
			Help: "Failed access token refreshes",
		}),
	}

	reg.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.backendStatus,
		c.authRetries,
		c.refreshSkipped,
		c.refreshSucceeded,
		c.refreshFailed,
	)

	return c
}

// RecordRequest records one handled gateway request
func (c *Collector) RecordRequest(method string, statusCode int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.Observe(duration.Seconds())
}

// BackendStatus records one backend response status
func (c *Collector) BackendStatus(status int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(status)).Inc()
}

// AuthRetried records one credential-repair retry
func (c *Collector) AuthRetried() {
	c.authRetries.Inc()
}

// RefreshSkipped records a hot-path refresh
func (c *Collector) RefreshSkipped() {
	c.refreshSkipped.Inc()
}

// RefreshSucceeded records a successful token refresh
func (c *Collector) RefreshSucceeded() {
	c.refreshSucceeded.Inc()
}

// RefreshFailed records a failed token refresh
func (c *Collector) RefreshFailed() {
	c.refreshFailed.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
