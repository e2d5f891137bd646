// Package metrics exposes prometheus instrumentation for the gateway.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatgpt_free_api"

// Stage labels for relay failures relative to the response commit point.
const (
	StagePreCommit  = "pre_commit"
	StagePostCommit = "post_commit"
)

// Metrics tracks request outcomes, proof-of-work results and relay failures.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	powSolved     prometheus.Counter
	powFallback   prometheus.Counter
	relayFailures *prometheus.CounterVec
}

// New creates all collectors and registers them with a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled",
			},
			[]string{"path", "status"},
		),

		powSolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pow_solved_total",
			Help:      "Proof-of-work challenges solved within the iteration bound",
		}),

		powFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pow_fallback_total",
			Help:      "Proof-of-work searches that exhausted the bound and fell back to a degraded token",
		}),

		relayFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_failures_total",
				Help:      "Upstream stream failures by commit stage",
			},
			[]string{"stage"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.powSolved,
		m.powFallback,
		m.relayFailures,
		collectors.NewGoCollector(),
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(path string, status int) {
	m.requestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}

// ObserveProofOfWork records a proof-of-work outcome. The degraded fallback
// path is counted separately so it can be alerted on.
func (m *Metrics) ObserveProofOfWork(degraded bool) {
	if degraded {
		m.powFallback.Inc()
		return
	}
	m.powSolved.Inc()
}

// ObserveRelayFailure records an upstream transport failure at the given
// commit stage.
func (m *Metrics) ObserveRelayFailure(stage string) {
	m.relayFailures.WithLabelValues(stage).Inc()
}
