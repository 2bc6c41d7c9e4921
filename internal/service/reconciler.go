package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"genbridge/internal/analytics"
	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/metrics"
	"genbridge/internal/notify"
	"genbridge/internal/providers"
)

// Ack is the acknowledgment returned to the provider. Success means the
// provider must not retry; the message is informational only and never
// carries secrets.
type Ack struct {
	Success bool
	Message string
}

// Reconciler is the trust boundary between untrusted callback traffic and
// job/ledger state. It never locks at the handler level: safety under
// duplicate concurrent delivery comes from the job store's idempotent
// Transition contract.
type Reconciler struct {
	jobs     domain.JobRepository
	ledger   domain.LedgerRepository
	adapters providers.Registry
	mailer   notify.Mailer
	sink     analytics.Sink
	logger   infra.Logger
}

// NewReconciler wires the callback path.
func NewReconciler(
	jobs domain.JobRepository,
	ledger domain.LedgerRepository,
	adapters providers.Registry,
	mailer notify.Mailer,
	sink analytics.Sink,
	logger infra.Logger,
) *Reconciler {
	if mailer == nil {
		mailer = notify.NopMailer{}
	}
	if sink == nil {
		sink = analytics.NopSink{}
	}
	return &Reconciler{
		jobs:     jobs,
		ledger:   ledger,
		adapters: adapters,
		mailer:   mailer,
		sink:     sink,
		logger:   logger,
	}
}

// HandleCallback processes one inbound provider callback. Authentication and
// structural validation failures surface as errors and never touch the job
// store. Domain-state conflicts are absorbed into a success acknowledgment
// so the provider stops retrying, but they are counted and logged as
// operational alerts.
func (r *Reconciler) HandleCallback(ctx context.Context, providerName string, body []byte, signature string) (Ack, error) {
	adapter, err := r.adapters.Lookup(providerName)
	if err != nil {
		return Ack{}, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}

	event, err := adapter.ParseCallback(body, signature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeInvalidSignature).Inc()
			r.logger.Warn().Str("provider", providerName).Msg("callback signature rejected")
		case errors.Is(err, domain.ErrMalformedPayload):
			metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeMalformed).Inc()
			r.logger.Warn().Err(err).Str("provider", providerName).Msg("callback payload rejected")
		}
		return Ack{}, err
	}

	job, err := r.jobs.GetByProviderRef(ctx, event.Provider, event.ProviderJobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Acknowledge-and-alert: a valid callback for a job we
			// never recorded means data loss upstream, and a retry
			// storm from the provider would not fix it.
			metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeUnknownJob).Inc()
			r.logger.Error().
				Str("provider", providerName).
				Str("provider_job_id", event.ProviderJobID).
				Msg("valid callback for unknown job")
			return Ack{Success: true, Message: "acknowledged"}, nil
		}
		metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeStorageError).Inc()
		return Ack{}, fmt.Errorf("lookup job: %w", err)
	}

	applied, err := r.jobs.Transition(ctx, domain.TransitionRequest{
		JobID:         job.ID,
		NewStatus:     event.Outcome.JobStatus(),
		PayloadDigest: event.PayloadDigest,
		ResultRef:     event.ResultRef,
		FailureReason: event.FailureReason,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
			// The callback is well-formed; the inconsistency is ours
			// to investigate, not the provider's to retry.
			metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeConflict).Inc()
			r.logger.Error().Err(err).
				Str("job_id", job.ID).
				Str("status", string(job.Status)).
				Str("incoming", string(event.Outcome.JobStatus())).
				Msg("callback transition rejected")
			return Ack{Success: true, Message: "acknowledged"}, nil
		case errors.Is(err, domain.ErrNotFound):
			metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeUnknownJob).Inc()
			return Ack{Success: true, Message: "acknowledged"}, nil
		}
		metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeStorageError).Inc()
		return Ack{}, fmt.Errorf("transition job: %w", err)
	}
	if !applied {
		metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeReplayed).Inc()
		r.logger.Debug().Str("job_id", job.ID).Msg("duplicate callback delivery")
		return Ack{Success: true, Message: "duplicate delivery"}, nil
	}

	metrics.WebhookCallbacks.WithLabelValues(providerName, metrics.OutcomeApplied).Inc()
	r.settle(ctx, job, event)
	return Ack{Success: true, Message: "applied"}, nil
}

// settle runs the side effects of a newly-applied transition. Each effect is
// idempotent per job, so a crash between transition and settlement at worst
// re-runs no-ops on the next delivery of a fresh callback.
func (r *Reconciler) settle(ctx context.Context, job *domain.Job, event domain.CallbackEvent) {
	switch event.Outcome {
	case domain.CallbackOutcomeSucceeded:
		// Charged at submission; the settlement entry is audit only.
		if _, err := r.ledger.Append(ctx, &domain.LedgerEntry{
			OwnerID:      job.OwnerID,
			Delta:        0,
			Reason:       domain.LedgerReasonSettlement,
			RelatedJobID: &job.ID,
		}); err != nil {
			r.logger.Error().Err(err).Str("job_id", job.ID).Msg("settlement entry failed")
		}
	case domain.CallbackOutcomeFailed:
		if refundSubmission(ctx, r.ledger, job, r.logger) {
			metrics.Refunds.Inc()
		}
	}

	if err := r.sink.Report(ctx, analytics.Event{
		Name:       analytics.EventCallbackApplied,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		r.logger.Debug().Err(err).Msg("callback event dropped")
	}

	if event.Outcome != domain.CallbackOutcomeProcessing && job.NotifyEmail != "" {
		r.notifyOutcome(ctx, job, event)
	}
}

func (r *Reconciler) notifyOutcome(ctx context.Context, job *domain.Job, event domain.CallbackEvent) {
	subject := "Your generation is ready"
	html := fmt.Sprintf("<p>Your %s job finished successfully.</p>", job.Kind)
	if event.Outcome == domain.CallbackOutcomeFailed {
		subject = "Your generation could not be completed"
		html = fmt.Sprintf("<p>Your %s job failed and your credits were refunded.</p>", job.Kind)
	}
	if err := r.mailer.Send(ctx, notify.Message{
		To:      []string{job.NotifyEmail},
		Subject: subject,
		HTML:    html,
	}); err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("outcome email not delivered")
	}
}

// refundSubmission restores the submission debit for a job that will never
// succeed. The refund amount comes from the recorded debit, and the ledger
// absorbs duplicates, so calling this from both the reconciler and the
// sweeper is safe.
func refundSubmission(ctx context.Context, ledger domain.LedgerRepository, job *domain.Job, logger infra.Logger) bool {
	debit, err := ledger.SubmissionDebit(ctx, job.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn().Str("job_id", job.ID).Msg("no submission debit to refund")
			return false
		}
		logger.Error().Err(err).Str("job_id", job.ID).Msg("refund lookup failed")
		return false
	}
	applied, err := ledger.Append(ctx, &domain.LedgerEntry{
		OwnerID:      job.OwnerID,
		Delta:        -debit.Delta,
		Reason:       domain.LedgerReasonFailureRefund,
		RelatedJobID: &job.ID,
	})
	if err != nil {
		logger.Error().Err(err).Str("job_id", job.ID).Msg("refund entry failed")
		return false
	}
	return applied
}
