package guardrails

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// guardrailTrips counts tripped checks.
	// Labels: guardrail (check name)
	guardrailTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogue",
			Subsystem: "guardrails",
			Name:      "trips_total",
			Help:      "Total number of guardrail checks that tripped their tripwire",
		},
		[]string{"guardrail"},
	)

	guardrailDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogue",
			Subsystem: "guardrails",
			Name:      "check_duration_seconds",
			Help:      "Duration of individual guardrail checks in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"guardrail"},
	)
)
