package callguard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "execdef",
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Backend calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "execdef",
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Backend call attempts repeated after a transient failure.",
		},
		[]string{"operation"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "execdef",
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Duration of single backend call attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"operation"},
	)
)

const (
	outcomeOK        = "ok"
	outcomeError     = "error"
	outcomeCancelled = "cancelled"
)
