// Package metrics holds the service's prometheus collectors. A nil *Metrics
// is valid and records nothing, so handlers never check whether metrics are on.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK            = "ok"
	OutcomeMalformed     = "malformed"
	OutcomeStorageError  = "storage_error"
	OutcomeMismatch      = "mismatch"
	OutcomeAuthenticated = "authenticated"
	OutcomeNoCookie      = "no_cookie"
	OutcomeInvalidToken  = "invalid_token"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry        *prometheus.Registry
	ingestTotal     *prometheus.CounterVec
	loginTotal      *prometheus.CounterVec
	sessionTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fpcollector_ingest_total",
			Help: "Fingerprint ingestion attempts by outcome",
		}, []string{"outcome"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fpcollector_login_total",
			Help: "Login submissions by outcome",
		}, []string{"outcome"}),
		sessionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fpcollector_session_checks_total",
			Help: "Session guard decisions by outcome",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fpcollector_http_request_duration_seconds",
			Help:    "HTTP handler latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.ingestTotal,
		m.loginTotal,
		m.sessionTotal,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Ingest counts one ingestion attempt.
func (m *Metrics) Ingest(outcome string) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(outcome).Inc()
}

// Login counts one login submission.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.loginTotal.WithLabelValues(outcome).Inc()
}

// SessionCheck counts one session guard decision.
func (m *Metrics) SessionCheck(outcome string) {
	if m == nil {
		return
	}
	m.sessionTotal.WithLabelValues(outcome).Inc()
}

// ObserveRequest records handler latency.
func (m *Metrics) ObserveRequest(method, route, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(took.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
