// Package metrics holds the Prometheus collectors for the ledger services and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shareit"

// Outcome labels.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeClaimed  = "claimed"
	OutcomeConflict = "already_claimed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type Metrics struct {
	Registry *prometheus.Registry

	recommendations *prometheus.CounterVec
	saves           *prometheus.CounterVec
	claims          *prometheus.CounterVec
	coinsAwarded    prometheus.Counter
	awardsRecovered prometheus.Counter
	retries         *prometheus.CounterVec

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "recommendations_total",
			Help:      "Recommendation create attempts by outcome.",
		}, []string{"outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "saves_total",
			Help:      "Save attempts by outcome.",
		}, []string{"outcome"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "claims_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		coinsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "coins_awarded_total",
			Help:      "Coins credited to referrers.",
		}),
		awardsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "awards_recovered_total",
			Help:      "Referral awards applied by the recovery job.",
		}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "store_retries_total",
			Help:      "Retried store operations.",
		}, []string{"op"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		m.recommendations,
		m.saves,
		m.claims,
		m.coinsAwarded,
		m.awardsRecovered,
		m.retries,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRecommendation(outcome string) {
	m.recommendations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordSave(outcome string) {
	m.saves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordClaim(outcome string) {
	m.claims.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordAward(coins int64, recovered bool) {
	m.coinsAwarded.Add(float64(coins))
	if recovered {
		m.awardsRecovered.Inc()
	}
}

func (m *Metrics) RecordRetry(op string) {
	m.retries.WithLabelValues(op).Inc()
}

// InstrumentHandler records request counts and latency by chi route pattern.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
