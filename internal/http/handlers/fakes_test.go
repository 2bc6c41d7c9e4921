package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"genbridge/internal/analytics"
	"genbridge/internal/domain"
	"genbridge/internal/http/handlers"
	"genbridge/internal/http/httpapi"
	"genbridge/internal/infra"
	"genbridge/internal/providers"
	"genbridge/internal/service"
)

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*domain.Job)}
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobs) GetByProviderRef(ctx context.Context, provider, providerJobID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Provider == provider && job.ProviderJobID == providerJobID {
			cp := *job
			return &cp, nil
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
		if job.Status.Terminal() {
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
	job.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeJobs) ExpireStale(ctx context.Context, olderThan time.Duration) ([]domain.Job, error) {
	return nil, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (f *fakeLedger) grant(ownerID string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, domain.LedgerEntry{
		ID:      "grant",
		OwnerID: ownerID,
		Delta:   amount,
		Reason:  domain.LedgerReasonTopUp,
	})
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
	f.entries = append(f.entries, domain.LedgerEntry{
		ID:           "debit-" + relatedJobID,
		OwnerID:      ownerID,
		Delta:        -amount,
		Reason:       domain.LedgerReasonSubmissionDebit,
		RelatedJobID: &relatedJobID,
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
	f.entries = append(f.entries, *entry)
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
			cp := e
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LedgerEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if f.entries[i].OwnerID == ownerID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrders) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderNo]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrders) MarkConversionReported(ctx context.Context, orderNo string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderNo]
	if !ok {
		return false, domain.ErrNotFound
	}
	if order.ConversionReported {
		return false, nil
	}
	order.ConversionReported = true
	return true, nil
}

type recordSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (s *recordSink) Report(ctx context.Context, event analytics.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordSink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// stubAdapter authenticates with the literal signature "valid" and treats
// any other signature as forged. The body is interpreted as
// "providerJobID|outcome".
type stubAdapter struct {
	name string
}

func (a stubAdapter) Name() string { return a.name }

func (a stubAdapter) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	return "remote-" + req.JobID, nil
}

func (a stubAdapter) ParseCallback(body []byte, signature string) (domain.CallbackEvent, error) {
	if signature != "valid" {
		return domain.CallbackEvent{}, domain.ErrInvalidSignature
	}
	ref, outcome, ok := strings.Cut(string(body), "|")
	if !ok {
		return domain.CallbackEvent{}, domain.ErrMalformedPayload
	}
	return domain.CallbackEvent{
		Provider:      a.name,
		ProviderJobID: ref,
		Outcome:       domain.CallbackOutcome(outcome),
		ResultRef:     "https://cdn.example/result",
		PayloadDigest: providers.PayloadDigest(body),
	}, nil
}

type fixture struct {
	handler http.Handler
	jobs    *fakeJobs
	ledger  *fakeLedger
	orders  *fakeOrders
	sink    *recordSink
}

func newFixture() *fixture {
	jobs := newFakeJobs()
	ledger := &fakeLedger{}
	orders := newFakeOrders()
	sink := &recordSink{}
	logger := zerolog.Nop()

	registry := providers.Registry{"veo": stubAdapter{name: "veo"}}
	gen := service.NewGenerationService(jobs, ledger, registry,
		map[domain.JobKind]string{domain.JobKindTextToVideo: "veo", domain.JobKindImageEdit: "veo"},
		map[domain.JobKind]int64{domain.JobKindTextToVideo: 20, domain.JobKindImageEdit: 10},
		sink, logger)
	rec := service.NewReconciler(jobs, ledger, registry, nil, sink, logger)
	bridge := service.NewConversionBridge(orders, sink, nil, logger)

	app := handlers.NewApp(gen, rec, bridge, logger)
	cfg := &infra.Config{RateLimitPerMin: 1000, AllowedOrigins: []string{"http://localhost:3000"}}
	return &fixture{
		handler: httpapi.NewRouter(app, cfg, logger),
		jobs:    jobs,
		ledger:  ledger,
		orders:  orders,
		sink:    sink,
	}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}
