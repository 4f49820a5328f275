// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsStarted counts start requests by outcome: created, resumed, or a decline reason.
	AttemptsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assess_attempt_starts_total",
			Help: "Start attempt requests by outcome",
		},
		[]string{"outcome"},
	)

	// AttemptsSubmitted counts terminal submissions; trigger is user or sweeper.
	AttemptsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assess_attempts_submitted_total",
			Help: "Attempts closed and graded",
		},
		[]string{"trigger"},
	)

	AttemptPercentage = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assess_attempt_percentage",
			Help:    "Distribution of graded attempt percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	SweepClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assess_sweeper_closed_total",
			Help: "Attempts closed by the deadline sweeper",
		},
	)

	SweepFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assess_sweeper_failures_total",
			Help: "Per-attempt sweeper failures, retried on the next tick",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assess_sweeper_duration_seconds",
			Help:    "Time spent in one sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NotifyDeliveries counts deliveries per sink; status is ok or error.
	NotifyDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assess_notify_deliveries_total",
			Help: "Graded-event deliveries per sink",
		},
		[]string{"sink", "status"},
	)

	NotifyDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assess_notify_dropped_total",
			Help: "Graded events dropped because the dispatch queue was full",
		},
	)

	NotifyQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assess_notify_queue_depth",
			Help: "Graded events waiting for dispatch",
		},
	)

	QuizCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assess_quiz_cache_lookups_total",
			Help: "Quiz definition cache lookups by result",
		},
		[]string{"result"},
	)
)
