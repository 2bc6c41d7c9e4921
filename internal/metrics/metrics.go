// Package metrics registers the Prometheus instruments for the job
// lifecycle. Webhook counters are the operational alert surface for
// conflicts and signature failures, which are deliberately absorbed at the
// HTTP layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcome label values.
const (
	OutcomeApplied          = "applied"
	OutcomeReplayed         = "replayed"
	OutcomeConflict         = "conflict"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMalformed        = "malformed"
	OutcomeUnknownJob       = "unknown_job"
	OutcomeStorageError     = "storage_error"
)

var (
	WebhookCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genbridge_webhook_callbacks_total",
		Help: "Inbound provider callbacks by provider and outcome.",
	}, []string{"provider", "outcome"})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genbridge_submissions_total",
		Help: "Generation submissions by kind and result.",
	}, []string{"kind", "result"})

	Conversions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genbridge_conversions_total",
		Help: "Conversion signals fired by the tracking bridge.",
	})

	ExpiredJobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genbridge_expired_jobs_total",
		Help: "Jobs swept to expired by the staleness pass.",
	})

	Refunds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genbridge_refunds_total",
		Help: "Failure refunds written to the credit ledger.",
	})
)
