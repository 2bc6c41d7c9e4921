package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/sqlinline"
)

// LedgerRepositoryPG implements domain.LedgerRepository on an append-only
// credit_entries table. Balances are always derived; there is no cached
// balance column to drift from the entry log.
type LedgerRepositoryPG struct {
	db infra.SQLExecutor
}

// NewLedgerRepository creates a new ledger repository backed by PostgreSQL.
func NewLedgerRepository(db infra.SQLExecutor) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{db: db}
}

// Debit writes a submission debit when the owner's balance covers it.
// Concurrent debits for the same owner serialize on a per-owner advisory
// lock taken as its own statement inside the transaction. The lock must
// precede the balance-checked insert: a waiter resumes with a snapshot taken
// after the previous holder committed, so it sees that debit.
func (r *LedgerRepositoryPG) Debit(ctx context.Context, ownerID string, amount int64, relatedJobID string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	return r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QAcquireOwnerLock, ownerID); err != nil {
			return fmt.Errorf("acquire owner lock: %w", err)
		}
		row := tx.QueryRow(ctx, sqlinline.QDebitCredits, uuid.NewString(), ownerID, amount, relatedJobID)
		var id string
		if err := row.Scan(&id); err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrInsufficientBalance
			}
			return fmt.Errorf("debit credits: %w", err)
		}
		return nil
	})
}

// Append writes a refund, settlement or top-up movement. Duplicates per
// (related job, reason) are absorbed by the storage layer; applied reports
// whether this call wrote the entry.
func (r *LedgerRepositoryPG) Append(ctx context.Context, entry *domain.LedgerEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	tag, err := r.db.Exec(ctx, sqlinline.QAppendLedgerEntry,
		entry.ID,
		entry.OwnerID,
		entry.Delta,
		string(entry.Reason),
		entry.RelatedJobID,
	)
	if err != nil {
		return false, fmt.Errorf("append ledger entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Balance derives the owner's balance as the sum of their entries.
func (r *LedgerRepositoryPG) Balance(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, sqlinline.QSelectBalance, ownerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("derive balance: %w", err)
	}
	return total, nil
}

// SubmissionDebit returns the debit written when the related job was
// submitted, which fixes the amount a refund has to restore.
func (r *LedgerRepositoryPG) SubmissionDebit(ctx context.Context, relatedJobID string) (*domain.LedgerEntry, error) {
	row := r.db.QueryRow(ctx, sqlinline.QSelectSubmissionDebit, relatedJobID)
	var entry domain.LedgerEntry
	if err := row.Scan(&entry.ID, &entry.OwnerID, &entry.Delta, &entry.Reason, &entry.RelatedJobID, &entry.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select submission debit: %w", err)
	}
	return &entry, nil
}

// ListByOwner returns the most recent movements for the owner.
func (r *LedgerRepositoryPG) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListLedgerEntries, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var items []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.Delta, &entry.Reason, &entry.RelatedJobID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.LedgerRepository = (*LedgerRepositoryPG)(nil)
