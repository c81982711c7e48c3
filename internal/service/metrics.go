package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rfq",
		Name:      "transitions_total",
		Help:      "Committed RFQ status changes broken down by source and target status.",
	}, []string{"from", "to"})

	transitionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rfq",
		Name:      "transition_conflicts_total",
		Help:      "Conditional status updates that lost a race, by action.",
	}, []string{"action"})

	sweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rfq",
		Subsystem: "sweep",
		Name:      "expired_total",
		Help:      "RFQs expired by the sweep.",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rfq",
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Duration of expiry sweeps.",
		Buckets:   prometheus.DefBuckets,
	})
)
