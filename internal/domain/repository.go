package domain

import (
	"context"
	"time"
)

// TransitionRequest carries one attempted status change for a job. The
// digest makes redelivery of the same callback detectable.
type TransitionRequest struct {
	JobID         string
	NewStatus     JobStatus
	PayloadDigest string
	ResultRef     string
	FailureReason string
}

// JobRepository is the single mutation surface for jobs. Transition reports
// applied=false with a nil error for an idempotent replay (same digest),
// ErrConflict for a conflicting terminal status, ErrInvalidTransition for a
// monotonicity violation and ErrNotFound for an unknown job.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetByProviderRef(ctx context.Context, provider, providerJobID string) (*Job, error)
	Transition(ctx context.Context, req TransitionRequest) (applied bool, err error)
	ExpireStale(ctx context.Context, olderThan time.Duration) ([]Job, error)
}

// OrderRepository reads purchase records and flips the conversion flag.
// MarkConversionReported returns applied=false when the flag was already
// set, which is how the bridge stays exactly-once under remounts.
type OrderRepository interface {
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	MarkConversionReported(ctx context.Context, orderNo string) (applied bool, err error)
}

// LedgerRepository appends credit movements. Debit fails with
// ErrInsufficientBalance when the owner's derived balance would go negative.
// Append is idempotent per (related job, reason) and reports whether the
// entry was newly written.
type LedgerRepository interface {
	Debit(ctx context.Context, ownerID string, amount int64, relatedJobID string) error
	Append(ctx context.Context, entry *LedgerEntry) (applied bool, err error)
	Balance(ctx context.Context, ownerID string) (int64, error)
	SubmissionDebit(ctx context.Context, relatedJobID string) (*LedgerEntry, error)
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]LedgerEntry, error)
}

// AnalyticsRepository updates daily metrics counters.
type AnalyticsRepository interface {
	IncrementCounters(ctx context.Context, day string, counters map[string]int) error
}
