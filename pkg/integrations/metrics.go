package integrations

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationsTotal counts evaluated clusters by decision outcome
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clustersweep_evaluations_total",
		Help: "The total number of cluster expiry evaluations by outcome",
	}, []string{"outcome"})

	// DeletionsTotal counts CAPI cluster deletion attempts by status
	DeletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clustersweep_deletions_total",
		Help: "The total number of CAPI cluster deletion attempts",
	}, []string{"status"})

	// NotificationsTotal counts expiry notifications sent by severity
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clustersweep_notifications_total",
		Help: "The total number of expiry notifications sent",
	}, []string{"severity"})

	// RunDuration measures the time taken for a full sweep
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clustersweep_run_duration_seconds",
		Help:    "Time taken to evaluate all clusters in the inventory",
		Buckets: prometheus.DefBuckets,
	})
)
