package analytics

import (
	"context"
	"time"

	"genbridge/internal/domain"
)

// CounterSink feeds the daily counters table, keeping a cheap in-database
// aggregate alongside whatever external measurement endpoint is configured.
type CounterSink struct {
	repo domain.AnalyticsRepository
}

func NewCounterSink(repo domain.AnalyticsRepository) *CounterSink {
	return &CounterSink{repo: repo}
}

func (s *CounterSink) Report(ctx context.Context, event Event) error {
	var key string
	switch event.Name {
	case EventConversion:
		key = "conversions"
	case EventSubmission:
		key = "submissions"
	case EventCallbackApplied:
		key = "callbacks_applied"
	default:
		return nil
	}
	day := event.OccurredAt
	if day.IsZero() {
		day = time.Now().UTC()
	}
	return s.repo.IncrementCounters(ctx, day.UTC().Format("2006-01-02"), map[string]int{key: 1})
}

var _ Sink = (*CounterSink)(nil)
