// Package metrics exposes issuance counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "issuer"

var (
	mintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mints_total",
		Help:      "Mint attempts by outcome.",
	}, []string{"outcome"})

	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "batches_total",
		Help:      "Completed batches by status.",
	}, []string{"status"})

	submitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "submit_seconds",
		Help:      "Time from autofill to a conclusive ledger result.",
		Buckets:   []float64{1, 2, 4, 6, 8, 12, 20, 30, 60, 120},
	})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)

// Mint outcomes
const (
	OutcomeValidated = "validated"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeTimeout   = "timeout"
	OutcomeInvalid   = "invalid"
)

func ObserveMint(outcome string) {
	mintsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSubmit(elapsed time.Duration) {
	submitSeconds.Observe(elapsed.Seconds())
}

func ObserveBatch(status string) {
	batchesTotal.WithLabelValues(status).Inc()
}

func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}
