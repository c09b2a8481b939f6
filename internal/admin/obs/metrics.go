// Package obs exposes Prometheus metrics for the admin backend.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenhq/warden/pkg/httpx"
)

// Metrics holds every collector the service registers.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
	logins          *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	dbProbeFailures prometheus.Counter
	auditDropped    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warden_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by window.",
		}, []string{"window"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		tokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_token_refreshes_total",
			Help: "Refresh token redemptions by outcome.",
		}, []string{"outcome"}),
		dbProbeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_db_probe_failures_total",
			Help: "Database health probes that failed after retries.",
		}),
		auditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "warden_audit_writes_dropped_total",
			Help: "Audit records dropped because the sink was unavailable.",
		}),
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRateLimited counts one rejected request.
func (m *Metrics) ObserveRateLimited(window string) {
	m.rateLimited.WithLabelValues(window).Inc()
}

// ObserveLogin counts one login attempt.
func (m *Metrics) ObserveLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// ObserveRefresh counts one refresh redemption.
func (m *Metrics) ObserveRefresh(outcome string) {
	m.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// ObserveDBProbeFailure counts one failed health probe.
func (m *Metrics) ObserveDBProbeFailure() {
	m.dbProbeFailures.Inc()
}

// ObserveAuditDropped counts one dropped audit write.
func (m *Metrics) ObserveAuditDropped() {
	m.auditDropped.Inc()
}

// Instrument records request counts and latency. Routes are labelled by
// pattern, not raw path, to keep cardinality bounded.
func (m *Metrics) Instrument() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
