package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polsim_turns_processed_total",
			Help: "Total number of successfully processed turn-end passes.",
		},
	)
	turnFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polsim_turn_failures_total",
			Help: "Total number of failed turn-end passes, partitioned by step.",
		},
		[]string{"step"},
	)
	turnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polsim_turn_processing_duration_seconds",
			Help:    "Histogram of turn-end pass durations.",
			Buckets: prometheus.DefBuckets,
		},
	)
	reputationChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polsim_reputation_changes_total",
			Help: "Total number of applied reputation deltas, partitioned by source.",
		},
		[]string{"source"},
	)
	electionsSimulatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polsim_elections_simulated_total",
			Help: "Total number of simulated provincial elections.",
		},
	)
)
