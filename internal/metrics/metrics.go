package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger operation outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeNoop         = "noop"
	OutcomeNotFound     = "not_found"
	OutcomeInsufficient = "insufficient_points"
	OutcomeInvalid      = "invalid"
	OutcomeFailure      = "failure"
)

// Metrics holds the rewards and HTTP collectors on a private registry.
type Metrics struct {
	registry       *prometheus.Registry
	operations     *prometheus.CounterVec
	pointsAccrued  prometheus.Counter
	pointsRedeemed prometheus.Counter
	balancesOpened prometheus.Counter
	requests       *prometheus.CounterVec
	durations      *prometheus.HistogramVec
}

// New registers the collectors under the given namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rewards"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		pointsAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_accrued_total",
			Help:      "Points added to balances by purchases.",
		}),
		pointsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_redeemed_total",
			Help:      "Points spent on deals.",
		}),
		balancesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balances_opened_total",
			Help:      "Reward balances created by a first purchase.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	m.registry.MustRegister(
		m.operations,
		m.pointsAccrued,
		m.pointsRedeemed,
		m.balancesOpened,
		m.requests,
		m.durations,
	)
	return m
}

// ObserveAccrual records a purchase outcome. Nil receivers are ignored.
func (m *Metrics) ObserveAccrual(outcome string, earned int64, created bool) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues("accrue", outcome).Inc()
	if outcome == OutcomeSuccess {
		m.pointsAccrued.Add(float64(earned))
		if created {
			m.balancesOpened.Inc()
		}
	}
}

// ObserveRedemption records a redemption outcome.
func (m *Metrics) ObserveRedemption(outcome string, spent int64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues("redeem", outcome).Inc()
	if outcome == OutcomeSuccess {
		m.pointsRedeemed.Add(float64(spent))
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
