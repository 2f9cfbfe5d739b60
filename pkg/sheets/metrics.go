package sheets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "khoras_sheets_attempts_total",
		Help: "Sheets API attempts by operation and outcome",
	}, []string{"op", "outcome"})

	remoteRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "khoras_sheets_retries_total",
		Help: "Sheets API retries after a failed attempt",
	}, []string{"op"})

	remoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "khoras_sheets_call_duration_seconds",
		Help:    "Duration of Sheets API calls including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)
