package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"genbridge/internal/analytics"
	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/metrics"
	"genbridge/internal/providers"
)

// SubmitInput is one generation request from the workspace UI.
type SubmitInput struct {
	OwnerID     string
	Kind        domain.JobKind
	Prompt      string
	Options     providers.SubmitOptions
	NotifyEmail string
}

// GenerationService owns submission: it debits credits, forwards the request
// to the matching provider adapter and records the pending job. Credits are
// charged up front; the webhook reconciler or the expiry sweep refunds them
// when the job never succeeds.
type GenerationService struct {
	jobs     domain.JobRepository
	ledger   domain.LedgerRepository
	adapters providers.Registry
	// kindProviders routes a job kind to the adapter that serves it.
	kindProviders map[domain.JobKind]string
	costs         map[domain.JobKind]int64
	sink          analytics.Sink
	logger        infra.Logger
}

// NewGenerationService wires the submission path.
func NewGenerationService(
	jobs domain.JobRepository,
	ledger domain.LedgerRepository,
	adapters providers.Registry,
	kindProviders map[domain.JobKind]string,
	costs map[domain.JobKind]int64,
	sink analytics.Sink,
	logger infra.Logger,
) *GenerationService {
	if sink == nil {
		sink = analytics.NopSink{}
	}
	return &GenerationService{
		jobs:          jobs,
		ledger:        ledger,
		adapters:      adapters,
		kindProviders: kindProviders,
		costs:         costs,
		sink:          sink,
		logger:        logger,
	}
}

// Submit validates the request, charges the owner and creates the pending
// job. Submission is not retried here; retry policy belongs to the caller.
func (s *GenerationService) Submit(ctx context.Context, in SubmitInput) (*domain.Job, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", domain.ErrInvalidRequest)
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unsupported job kind %q", domain.ErrInvalidRequest, in.Kind)
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrInvalidRequest)
	}
	providerName, ok := s.kindProviders[in.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q is not available", domain.ErrInvalidRequest, in.Kind)
	}
	adapter, err := s.adapters.Lookup(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: kind %q is not available", domain.ErrInvalidRequest, in.Kind)
	}
	cost, ok := s.costs[in.Kind]
	if !ok || cost <= 0 {
		return nil, fmt.Errorf("%w: kind %q is not available", domain.ErrInvalidRequest, in.Kind)
	}

	jobID := uuid.NewString()
	if err := s.ledger.Debit(ctx, in.OwnerID, cost, jobID); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			metrics.Submissions.WithLabelValues(string(in.Kind), "insufficient_balance").Inc()
		}
		return nil, err
	}

	providerJobID, err := adapter.Submit(ctx, providers.SubmitRequest{
		JobID:   jobID,
		OwnerID: in.OwnerID,
		Kind:    in.Kind,
		Prompt:  in.Prompt,
		Options: in.Options,
	})
	if err != nil {
		s.refundAfterFailedSubmit(ctx, in.OwnerID, cost, jobID)
		metrics.Submissions.WithLabelValues(string(in.Kind), "provider_error").Inc()
		return nil, err
	}

	optionsJSON, err := json.Marshal(in.Options)
	if err != nil {
		optionsJSON = []byte(`{}`)
	}
	now := time.Now().UTC()
	job := &domain.Job{
		ID:            jobID,
		OwnerID:       in.OwnerID,
		Kind:          in.Kind,
		Status:        domain.JobStatusPending,
		Provider:      providerName,
		ProviderJobID: providerJobID,
		Prompt:        in.Prompt,
		OptionsJSON:   optionsJSON,
		Cost:          cost,
		NotifyEmail:   strings.TrimSpace(in.NotifyEmail),
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		// The provider job is already running; keep the debit so the
		// callback path still reconciles if the row loss is transient,
		// but surface the failure loudly.
		s.logger.Error().Err(err).
			Str("job_id", jobID).
			Str("provider_job_id", providerJobID).
			Msg("job row creation failed after provider submit")
		return nil, fmt.Errorf("record job: %w", err)
	}

	metrics.Submissions.WithLabelValues(string(in.Kind), "accepted").Inc()
	if err := s.sink.Report(ctx, analytics.Event{
		Name:       analytics.EventSubmission,
		OccurredAt: now,
	}); err != nil {
		s.logger.Debug().Err(err).Msg("submission event dropped")
	}
	s.logger.Info().
		Str("job_id", jobID).
		Str("owner_id", in.OwnerID).
		Str("kind", string(in.Kind)).
		Str("provider", providerName).
		Msg("generation submitted")
	return job, nil
}

// GetForOwner returns a job only to the owner that submitted it.
func (s *GenerationService) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

// Balance exposes the derived credit balance for the owner.
func (s *GenerationService) Balance(ctx context.Context, ownerID string) (int64, error) {
	return s.ledger.Balance(ctx, ownerID)
}

// Movements lists recent ledger entries for the owner.
func (s *GenerationService) Movements(ctx context.Context, ownerID string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ledger.ListByOwner(ctx, ownerID, limit)
}

func (s *GenerationService) refundAfterFailedSubmit(ctx context.Context, ownerID string, cost int64, jobID string) {
	applied, err := s.ledger.Append(ctx, &domain.LedgerEntry{
		OwnerID:      ownerID,
		Delta:        cost,
		Reason:       domain.LedgerReasonFailureRefund,
		RelatedJobID: &jobID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("refund after failed submit did not apply")
		return
	}
	if applied {
		metrics.Refunds.Inc()
	}
}
