package domain

import "time"

// LedgerReason classifies a credit movement.
type LedgerReason string

const (
	LedgerReasonSubmissionDebit LedgerReason = "submission_debit"
	LedgerReasonFailureRefund   LedgerReason = "failure_refund"
	LedgerReasonSettlement      LedgerReason = "settlement"
	LedgerReasonTopUp           LedgerReason = "top_up"
)

// LedgerEntry is an immutable record of a credit balance change. A user's
// balance is the sum of their entries; entries are never updated or deleted.
type LedgerEntry struct {
	ID           string
	OwnerID      string
	Delta        int64
	Reason       LedgerReason
	RelatedJobID *string
	CreatedAt    time.Time
}
