package repo

import (
	"context"
	"fmt"
	"time"

	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(db infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.db.Exec(ctx, sqlinline.QInsertJob,
		job.ID,
		job.OwnerID,
		string(job.Kind),
		string(job.Status),
		job.Provider,
		job.ProviderJobID,
		job.Prompt,
		nullableJSON(job.OptionsJSON),
		job.Cost,
		job.NotifyEmail,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its internal identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return r.scanJob(r.db.QueryRow(ctx, sqlinline.QSelectJobByID, jobID))
}

// GetByProviderRef fetches a job by the identifier the provider assigned at
// submission time. Callbacks carry only the provider-side id.
func (r *JobRepositoryPG) GetByProviderRef(ctx context.Context, provider, providerJobID string) (*domain.Job, error) {
	return r.scanJob(r.db.QueryRow(ctx, sqlinline.QSelectJobByProviderRef, provider, providerJobID))
}

// Transition applies one status change atomically. The conditional update is
// the unit of atomicity; when it touches no row the current row state is read
// back once to classify the miss. Classification is stable because an equal
// digest and a terminal status can never be un-set by a concurrent writer.
func (r *JobRepositoryPG) Transition(ctx context.Context, req domain.TransitionRequest) (bool, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QTransitionJob,
		req.JobID,
		string(req.NewStatus),
		req.PayloadDigest,
		req.ResultRef,
		req.FailureReason,
	)
	if err != nil {
		return false, fmt.Errorf("transition job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var status domain.JobStatus
	var digest string
	row := r.db.QueryRow(ctx, sqlinline.QClassifyTransition, req.JobID)
	if err := row.Scan(&status, &digest); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("classify transition: %w", err)
	}
	switch {
	case digest == req.PayloadDigest:
		// Redelivery of an already-accepted payload.
		return false, nil
	case status.Terminal() && status != req.NewStatus:
		return false, domain.ErrConflict
	default:
		return false, domain.ErrInvalidTransition
	}
}

// ExpireStale sweeps jobs stuck in a non-terminal status past the staleness
// window and returns them so the caller can settle refunds.
func (r *JobRepositoryPG) ExpireStale(ctx context.Context, olderThan time.Duration) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QExpireStaleJobs, olderThan.Seconds())
	if err != nil {
		return nil, fmt.Errorf("expire stale jobs: %w", err)
	}
	defer rows.Close()

	var swept []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := scanJobFields(rows.Scan, &job); err != nil {
			return nil, err
		}
		swept = append(swept, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return swept, nil
}

func (r *JobRepositoryPG) scanJob(row interface{ Scan(dest ...any) error }) (*domain.Job, error) {
	var job domain.Job
	if err := scanJobFields(row.Scan, &job); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func scanJobFields(scan func(dest ...any) error, job *domain.Job) error {
	return scan(
		&job.ID,
		&job.OwnerID,
		&job.Kind,
		&job.Status,
		&job.Provider,
		&job.ProviderJobID,
		&job.Prompt,
		&job.OptionsJSON,
		&job.Cost,
		&job.ResultRef,
		&job.FailureReason,
		&job.PayloadDigest,
		&job.NotifyEmail,
		&job.SubmittedAt,
		&job.UpdatedAt,
	)
}

func nullableJSON(b []byte) []byte {
	if len(b) == 0 {
		return []byte(`{}`)
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
