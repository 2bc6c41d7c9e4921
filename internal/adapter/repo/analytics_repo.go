package repo

import (
	"context"
	"fmt"

	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/sqlinline"
)

// AnalyticsRepositoryPG upserts per-day counters using PostgreSQL.
type AnalyticsRepositoryPG struct {
	db infra.SQLExecutor
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db infra.SQLExecutor) *AnalyticsRepositoryPG {
	return &AnalyticsRepositoryPG{db: db}
}

// IncrementCounters upserts metrics for the provided day.
func (r *AnalyticsRepositoryPG) IncrementCounters(ctx context.Context, day string, counters map[string]int) error {
	_, err := r.db.Exec(ctx, sqlinline.QIncrementDailyCounters,
		day,
		counters["submissions"],
		counters["callbacks_applied"],
		counters["callbacks_replayed"],
		counters["callbacks_conflict"],
		counters["conversions"],
	)
	if err != nil {
		return fmt.Errorf("increment daily counters: %w", err)
	}
	return nil
}

var _ domain.AnalyticsRepository = (*AnalyticsRepositoryPG)(nil)
