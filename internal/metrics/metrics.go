// Package metrics exposes settlement counters and remote call latencies.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credibridge-backend/internal/domain"
)

// Settlement outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeFailed       = "failed"
	OutcomeUnreconciled = "unreconciled"
)

type Metrics struct {
	registry        *prometheus.Registry
	settlements     *prometheus.CounterVec
	remoteCalls     *prometheus.HistogramVec
	reconciliations prometheus.Counter
	openRecs        prometheus.Gauge
	driftedMembers  prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "credibridge",
			Name:      "settlements_total",
			Help:      "Settlement operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		remoteCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "credibridge",
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of settlement service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "credibridge",
			Name:      "reconciliations_opened_total",
			Help:      "Settlements that needed manual reconciliation.",
		}),
		openRecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "credibridge",
			Name:      "reconciliations_open",
			Help:      "Reconciliation records not yet closed.",
		}),
		driftedMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "credibridge",
			Name:      "balance_drift_members",
			Help:      "Members whose cached balance differed from the remote one at the last check.",
		}),
	}
	m.registry.MustRegister(
		m.settlements,
		m.remoteCalls,
		m.reconciliations,
		m.openRecs,
		m.driftedMembers,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSettlement counts a finished settlement by the error it returned.
func (m *Metrics) ObserveSettlement(kind domain.TransactionKind, err error) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(string(kind), Outcome(err)).Inc()
}

// ObserveRemoteCall records the latency of one settlement service call.
func (m *Metrics) ObserveRemoteCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.remoteCalls.WithLabelValues(operation, result).Observe(d.Seconds())
}

func (m *Metrics) ReconciliationOpened() {
	if m == nil {
		return
	}
	m.reconciliations.Inc()
	m.openRecs.Inc()
}

func (m *Metrics) ReconciliationClosed() {
	if m == nil {
		return
	}
	m.openRecs.Dec()
}

// SetOpenReconciliations resets the gauge, used after restoring state.
func (m *Metrics) SetOpenReconciliations(n int) {
	if m == nil {
		return
	}
	m.openRecs.Set(float64(n))
}

func (m *Metrics) SetDriftedMembers(n int) {
	if m == nil {
		return
	}
	m.driftedMembers.Set(float64(n))
}

// Outcome classifies a settlement error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrUnreconciledSettlement):
		return OutcomeUnreconciled
	case errors.Is(err, domain.ErrSettlementFailed):
		return OutcomeFailed
	default:
		return OutcomeRejected
	}
}
