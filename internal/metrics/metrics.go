package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerkeeper_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	EntriesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_ledger_entries_written_total",
			Help: "Total number of ledger entries appended",
		},
		[]string{"type"},
	)

	EntriesDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_ledger_entries_deleted_total",
			Help: "Total number of ledger entries soft-deleted",
		},
	)

	ValidationViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_validation_violations_total",
			Help: "Total number of structural violations found in ledger entries",
		},
	)

	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_reconciliations_total",
			Help: "Total number of per-user reconciliations by outcome",
		},
		[]string{"outcome"},
	)

	CorrectionsAppliedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_corrections_applied_total",
			Help: "Total number of cached balance corrections written",
		},
	)

	DriftMagnitude = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerkeeper_drift_magnitude_credits",
			Help:    "Absolute available-credit drift detected per reconciliation",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerkeeper_sweeps_total",
			Help: "Total number of reconciliation sweeps",
		},
		[]string{"trigger"},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerkeeper_sweep_duration_seconds",
			Help:    "Duration of reconciliation sweeps in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	SweepQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgerkeeper_sweep_queue_length",
			Help: "Current length of the async sweep queue",
		},
	)

	CachedCredits = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgerkeeper_cached_credits",
			Help: "Cached available credits after a correction",
		},
		[]string{"user_id"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordEntryWritten(entryType string) {
	EntriesWrittenTotal.WithLabelValues(entryType).Inc()
}

func RecordEntryDeleted() {
	EntriesDeletedTotal.Inc()
}

func RecordValidationViolations(count int) {
	ValidationViolationsTotal.Add(float64(count))
}

func RecordReconciliation(outcome string, driftAbs int64) {
	ReconciliationsTotal.WithLabelValues(outcome).Inc()
	DriftMagnitude.Observe(float64(driftAbs))
}

func RecordCorrection(userID string, credits int64) {
	CorrectionsAppliedTotal.Inc()
	CachedCredits.WithLabelValues(userID).Set(float64(credits))
}

func RecordSweep(trigger string, durationSeconds float64) {
	SweepsTotal.WithLabelValues(trigger).Inc()
	SweepDuration.Observe(durationSeconds)
}
