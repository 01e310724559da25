// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	MatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mentor_match_runs_total",
			Help: "Matching runs by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	UnmatchedFellows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentor_match_unmatched_fellows",
			Help:    "Fellows left without a primary mentor per run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"mode"},
	)

	MatchScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mentor_match_score",
			Help:    "Compatibility score of emitted matches",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"mode"},
	)
)

// Run outcomes.
const (
	OutcomeMatched    = "matched"
	OutcomeNoMentors  = "no_eligible_mentors"
	OutcomePartial    = "partial"
	OutcomeRejected   = "rejected"
	OutcomeStoreError = "store_error"
)
