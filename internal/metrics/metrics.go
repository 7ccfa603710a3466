package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Parsed imports by outcome: ok/empty
	ParseRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_parse_runs_total",
			Help: "Total number of pasted documents parsed",
		},
		[]string{"outcome"},
	)

	// Questions produced by the parser, by type: mcq/written
	ParsedQuestions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_parsed_questions_total",
			Help: "Total number of questions produced by the parser",
		},
		[]string{"type"},
	)

	TestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "practice_tests_created_total",
			Help: "Total number of tests created",
		},
	)

	// Submissions by trigger (manual/auto) and status (success/failure)
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_submissions_total",
			Help: "Total number of attempt submissions",
		},
		[]string{"trigger", "status"},
	)

	AttemptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "practice_attempt_duration_seconds",
			Help:    "Recorded foreground time of submitted attempts",
			Buckets: []float64{30, 60, 300, 600, 1200, 1800, 3600, 7200},
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "practice_active_sessions_current",
			Help: "Current number of running or paused sessions",
		},
	)

	// Store operations that failed and were retried, by op: get/set
	StoreRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_store_retries_total",
			Help: "Total number of retried store operations",
		},
		[]string{"op"},
	)

	// Export bundles by status: success/failure
	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "practice_exports_total",
			Help: "Total number of attempt export bundles written",
		},
		[]string{"status"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusLabel maps an error to the success/failure label.
func StatusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
