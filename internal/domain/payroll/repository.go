package payroll

import (
	"context"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
)

// PaymentRepository stores one payment record per (worker, period).
type PaymentRepository interface {
	// Save inserts the record, or replaces the stored one for the same
	// (worker, period) when that one is still pending or overdue.
	// Returns ErrPaymentSettled for partial or paid records.
	Save(ctx context.Context, record PaymentRecord) (PaymentRecord, error)

	GetByID(ctx context.Context, id string) (PaymentRecord, error)

	// GetByWorkerPeriod returns nil when no record exists.
	GetByWorkerPeriod(ctx context.Context, workerID string, period attendance.Period) (*PaymentRecord, error)

	List(ctx context.Context, filter PaymentFilter) ([]PaymentRecord, int64, error)

	// Update writes status and payment fields of an existing record.
	Update(ctx context.Context, record PaymentRecord) (PaymentRecord, error)

	// MarkOverdue flips pending records due before asOf to overdue and
	// returns how many changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// LedgerRepository is the advance/deduction ledger kept outside payroll.
type LedgerRepository interface {
	GetOutstanding(ctx context.Context, workerID string, period attendance.Period) (Outstanding, error)
	AddEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error)
}
