package service

import (
	"context"
	"time"

	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/metrics"
)

// Sweeper expires jobs stuck in a non-terminal status past the staleness
// window. This is the only path by which a job leaves pending or processing
// without an inbound callback.
type Sweeper struct {
	jobs       domain.JobRepository
	ledger     domain.LedgerRepository
	staleAfter time.Duration
	logger     infra.Logger
}

// NewSweeper wires the expiry pass.
func NewSweeper(jobs domain.JobRepository, ledger domain.LedgerRepository, staleAfter time.Duration, logger infra.Logger) *Sweeper {
	return &Sweeper{jobs: jobs, ledger: ledger, staleAfter: staleAfter, logger: logger}
}

// SweepOnce expires every stale job and refunds its submission debit.
// It returns the number of jobs swept.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	swept, err := s.jobs.ExpireStale(ctx, s.staleAfter)
	if err != nil {
		return 0, err
	}
	for i := range swept {
		job := &swept[i]
		metrics.ExpiredJobs.Inc()
		if refundSubmission(ctx, s.ledger, job, s.logger) {
			metrics.Refunds.Inc()
		}
		s.logger.Warn().
			Str("job_id", job.ID).
			Str("provider", job.Provider).
			Str("kind", string(job.Kind)).
			Msg("job expired without provider callback")
	}
	return len(swept), nil
}

// Run executes SweepOnce on the given interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep pass failed")
			} else if n > 0 {
				s.logger.Info().Int("expired", n).Msg("sweep pass complete")
			}
		}
	}
}
