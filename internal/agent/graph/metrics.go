package graph

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	errx "github.com/catalogue-assistant/server/internal/core/error"
)

var (
	// workflowRuns counts finished runs.
	// Labels: terminal_state (blocked|unmatched|dispatch|error)
	workflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogue",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total number of workflow runs by terminal state",
		},
		[]string{"terminal_state"},
	)

	// workflowErrors counts failed runs.
	// Labels: kind (classifier_output_missing|responder_output_missing|timeout|other)
	workflowErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogue",
			Subsystem: "workflow",
			Name:      "errors_total",
			Help:      "Total number of failed workflow runs by failure kind",
		},
		[]string{"kind"},
	)

	workflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogue",
			Subsystem: "workflow",
			Name:      "run_duration_seconds",
			Help:      "Duration of workflow runs in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"terminal_state"},
	)
)

func observeRun(terminalState string, err error, took time.Duration) {
	workflowRuns.WithLabelValues(terminalState).Inc()
	workflowDuration.WithLabelValues(terminalState).Observe(took.Seconds())
	if err != nil {
		workflowErrors.WithLabelValues(errorKind(err)).Inc()
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errx.ErrClassifierOutputMissing):
		return "classifier_output_missing"
	case errors.Is(err, errx.ErrResponderOutputMissing):
		return "responder_output_missing"
	case errors.Is(err, errx.ErrWorkflowTimeout):
		return "timeout"
	}
	return "other"
}
