// Package metrics exposes Prometheus instrumentation for the gate engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Decisions counts screened scans by outcome (authorized, late,
	// violation) or failure code.
	Decisions *prometheus.CounterVec

	// ScreenDuration tracks end-to-end screening latency in seconds.
	ScreenDuration prometheus.Histogram

	// ActiveAnomalies counts scans that found more than one active
	// permission for a user. Nonzero means the data needs attention.
	ActiveAnomalies prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "facegate_gate_decisions_total",
			Help: "Gate screening decisions by outcome.",
		}, []string{"outcome"}),
		ScreenDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "facegate_gate_screen_duration_seconds",
			Help:    "Latency of gate screening, including identity resolution.",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveAnomalies: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "facegate_gate_active_permission_anomalies_total",
			Help: "Scans that found more than one simultaneously active permission.",
		}),
	}
}

// NewNop returns metrics bound to a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
