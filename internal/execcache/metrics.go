package execcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "execdef",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Execution cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	evictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "execdef",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Results dropped from the execution cache to make room.",
		},
	)
)

const (
	outcomeHit    = "hit"
	outcomeMiss   = "miss"
	outcomeShared = "shared"
)
