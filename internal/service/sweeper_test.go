package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"genbridge/internal/domain"
)

func TestSweepExpiresStaleJobsAndRefunds(t *testing.T) {
	jobs := newFakeJobs()
	ledger := &fakeLedger{}
	ctx := context.Background()

	ledger.grant("U1", 100)
	require.NoError(t, ledger.Debit(ctx, "U1", 20, "job-stale"))
	require.NoError(t, jobs.Create(ctx, &domain.Job{
		ID:          "job-stale",
		OwnerID:     "U1",
		Kind:        domain.JobKindTextToVideo,
		Status:      domain.JobStatusPending,
		Provider:    "veo",
		Cost:        20,
		SubmittedAt: time.Now().UTC().Add(-2 * time.Hour),
		UpdatedAt:   time.Now().UTC().Add(-2 * time.Hour),
	}))
	require.NoError(t, ledger.Debit(ctx, "U1", 20, "job-fresh"))
	require.NoError(t, jobs.Create(ctx, &domain.Job{
		ID:          "job-fresh",
		OwnerID:     "U1",
		Kind:        domain.JobKindTextToVideo,
		Status:      domain.JobStatusPending,
		Provider:    "veo",
		Cost:        20,
		SubmittedAt: time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}))

	sweeper := NewSweeper(jobs, ledger, time.Hour, zerolog.Nop())
	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	stale, err := jobs.GetByID(ctx, "job-stale")
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusExpired, stale.Status)

	fresh, err := jobs.GetByID(ctx, "job-fresh")
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusPending, fresh.Status)

	require.EqualValues(t, 0, ledger.netForJob("job-stale"), "expiry must refund the submission debit")
	require.EqualValues(t, -20, ledger.netForJob("job-fresh"))
}

func TestSweepIsIdempotent(t *testing.T) {
	jobs := newFakeJobs()
	ledger := &fakeLedger{}
	ctx := context.Background()

	ledger.grant("U1", 100)
	require.NoError(t, ledger.Debit(ctx, "U1", 20, "job-stale"))
	require.NoError(t, jobs.Create(ctx, &domain.Job{
		ID:        "job-stale",
		OwnerID:   "U1",
		Status:    domain.JobStatusProcessing,
		Provider:  "veo",
		Cost:      20,
		UpdatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}))

	sweeper := NewSweeper(jobs, ledger, time.Hour, zerolog.Nop())
	_, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "terminal jobs are never swept again")

	require.EqualValues(t, 0, ledger.netForJob("job-stale"))
	balance, err := ledger.Balance(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 100, balance)
}
