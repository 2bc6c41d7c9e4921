package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"genbridge/internal/analytics"
	"genbridge/internal/domain"
	"genbridge/internal/notify"
	"genbridge/internal/providers"
)

// fakeJobs mirrors the PostgreSQL transition semantics in memory: digest
// replay is a no-op, terminal mismatches conflict, monotonicity violations
// are rejected.
type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]*domain.Job{}}
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (f *fakeJobs) GetByProviderRef(ctx context.Context, provider, providerJobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Provider == provider && job.ProviderJobID == providerJobID {
			clone := *job
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeJobs) Transition(ctx context.Context, req domain.TransitionRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[req.JobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.PayloadDigest == req.PayloadDigest {
		return false, nil
	}
	if !job.Status.CanTransition(req.NewStatus) {
		if job.Status.Terminal() && job.Status != req.NewStatus {
			return false, domain.ErrConflict
		}
		return false, domain.ErrInvalidTransition
	}
	job.Status = req.NewStatus
	job.PayloadDigest = req.PayloadDigest
	if req.NewStatus == domain.JobStatusSucceeded {
		job.ResultRef = req.ResultRef
	}
	if req.NewStatus == domain.JobStatusFailed || req.NewStatus == domain.JobStatusExpired {
		job.FailureReason = req.FailureReason
	}
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeJobs) ExpireStale(ctx context.Context, olderThan time.Duration) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var swept []domain.Job
	for _, job := range f.jobs {
		if !job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			job.Status = domain.JobStatusExpired
			job.UpdatedAt = time.Now().UTC()
			swept = append(swept, *job)
		}
	}
	return swept, nil
}

// fakeLedger keeps the append-only entry log in memory with the same
// per-(job, reason) dedup the partial unique index provides.
type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (f *fakeLedger) Debit(ctx context.Context, ownerID string, amount int64, relatedJobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var balance int64
	for _, e := range f.entries {
		if e.OwnerID == ownerID {
			balance += e.Delta
		}
	}
	if balance < amount {
		return domain.ErrInsufficientBalance
	}
	jobID := relatedJobID
	f.entries = append(f.entries, domain.LedgerEntry{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Delta:        -amount,
		Reason:       domain.LedgerReasonSubmissionDebit,
		RelatedJobID: &jobID,
		CreatedAt:    time.Now().UTC(),
	})
	return nil
}

func (f *fakeLedger) Append(ctx context.Context, entry *domain.LedgerEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.RelatedJobID != nil {
		for _, e := range f.entries {
			if e.RelatedJobID != nil && *e.RelatedJobID == *entry.RelatedJobID && e.Reason == entry.Reason {
				return false, nil
			}
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	clone := *entry
	clone.CreatedAt = time.Now().UTC()
	f.entries = append(f.entries, clone)
	return true, nil
}

func (f *fakeLedger) Balance(ctx context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var balance int64
	for _, e := range f.entries {
		if e.OwnerID == ownerID {
			balance += e.Delta
		}
	}
	return balance, nil
}

func (f *fakeLedger) SubmissionDebit(ctx context.Context, relatedJobID string) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.RelatedJobID != nil && *e.RelatedJobID == relatedJobID && e.Reason == domain.LedgerReasonSubmissionDebit {
			clone := e
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []domain.LedgerEntry
	for i := len(f.entries) - 1; i >= 0 && len(items) < limit; i-- {
		if f.entries[i].OwnerID == ownerID {
			items = append(items, f.entries[i])
		}
	}
	return items, nil
}

// grant seeds an owner with credits outside the debit path.
func (f *fakeLedger) grant(ownerID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, domain.LedgerEntry{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Delta:     amount,
		Reason:    domain.LedgerReasonTopUp,
		CreatedAt: time.Now().UTC(),
	})
}

// netForJob sums all entry deltas tied to one job.
func (f *fakeLedger) netForJob(jobID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var net int64
	for _, e := range f.entries {
		if e.RelatedJobID != nil && *e.RelatedJobID == jobID {
			net += e.Delta
		}
	}
	return net
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*domain.Order{}}
}

func (f *fakeOrders) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeOrders) MarkConversionReported(ctx context.Context, orderNo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderNo]
	if !ok || order.ConversionReported {
		return false, nil
	}
	order.ConversionReported = true
	return true, nil
}

// recordSink captures reported events and optionally fails.
type recordSink struct {
	mu     sync.Mutex
	events []analytics.Event
	err    error
}

func (s *recordSink) Report(ctx context.Context, event analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordSink) byName(name string) []analytics.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []analytics.Event
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type recordMailer struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (m *recordMailer) Send(ctx context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// stubAdapter answers Submit and ParseCallback from canned values.
type stubAdapter struct {
	name      string
	submitID  string
	submitErr error
	event     domain.CallbackEvent
	parseErr  error
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	if a.submitErr != nil {
		return "", a.submitErr
	}
	return a.submitID, nil
}

func (a *stubAdapter) ParseCallback(body []byte, signature string) (domain.CallbackEvent, error) {
	if a.parseErr != nil {
		return domain.CallbackEvent{}, a.parseErr
	}
	event := a.event
	event.PayloadDigest = providers.PayloadDigest(body)
	return event, nil
}
