package repo

import (
	"context"
	"fmt"

	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/sqlinline"
)

// OrderRepositoryPG implements domain.OrderRepository using PostgreSQL.
// Orders are created at checkout time by an external system; this service
// only reads them and flips the conversion flag.
type OrderRepositoryPG struct {
	db infra.SQLExecutor
}

// NewOrderRepository creates a new order repo.
func NewOrderRepository(db infra.SQLExecutor) *OrderRepositoryPG {
	return &OrderRepositoryPG{db: db}
}

// GetByOrderNo fetches an order by its number.
func (r *OrderRepositoryPG) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	row := r.db.QueryRow(ctx, sqlinline.QSelectOrderByNo, orderNo)
	var order domain.Order
	if err := row.Scan(
		&order.OrderNo,
		&order.JobID,
		&order.AmountMinor,
		&order.Currency,
		&order.ConversionReported,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &order, nil
}

// MarkConversionReported flips conversion_reported false -> true. The guard
// lives in the update's where clause, so concurrent invocations agree on a
// single winner.
func (r *OrderRepositoryPG) MarkConversionReported(ctx context.Context, orderNo string) (bool, error) {
	tag, err := r.db.Exec(ctx, sqlinline.QMarkConversionReported, orderNo)
	if err != nil {
		return false, fmt.Errorf("mark conversion reported: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

var _ domain.OrderRepository = (*OrderRepositoryPG)(nil)
