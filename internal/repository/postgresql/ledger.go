package postgresql

import (
	"context"
	"fmt"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ledgerRepository struct {
	db *database.DB
}

// GetOutstanding implements payroll.LedgerRepository.
func (r *ledgerRepository) GetOutstanding(ctx context.Context, workerID string, period attendance.Period) (payroll.Outstanding, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT kind, label, SUM(amount)
		FROM ledger_entries
		WHERE worker_id = $1 AND entry_date >= $2::date AND entry_date <= $3::date
		GROUP BY kind, label
	`

	rows, err := q.Query(ctx, query, workerID,
		period.StartDate.Format(attendance.DateLayout),
		period.EndDate.Format(attendance.DateLayout),
	)
	if err != nil {
		return payroll.Outstanding{}, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	out := payroll.Outstanding{
		WorkerID:   workerID,
		Advances:   decimal.Zero,
		Deductions: make(map[string]decimal.Decimal),
	}
	for rows.Next() {
		var (
			kind, label string
			amount      decimal.Decimal
		)
		if err := rows.Scan(&kind, &label, &amount); err != nil {
			return payroll.Outstanding{}, fmt.Errorf("failed to scan ledger balance: %w", err)
		}
		switch payroll.LedgerKind(kind) {
		case payroll.LedgerAdvance:
			out.Advances = out.Advances.Add(amount)
		case payroll.LedgerDeduction:
			out.Deductions[label] = out.Deductions[label].Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return payroll.Outstanding{}, fmt.Errorf("failed to iterate ledger balances: %w", err)
	}

	return out, nil
}

// AddEntry implements payroll.LedgerRepository.
func (r *ledgerRepository) AddEntry(ctx context.Context, entry payroll.LedgerEntry) (payroll.LedgerEntry, error) {
	q := GetQuerier(ctx, r.db)

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.LedgerEntry{}, fmt.Errorf("failed to generate ledger entry id: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (id, worker_id, kind, label, amount, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6::date)
		RETURNING id, created_at
	`
	err = q.QueryRow(ctx, query,
		id.String(), entry.WorkerID, string(entry.Kind), entry.Label, entry.Amount,
		entry.EntryDate.Format(attendance.DateLayout),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return payroll.LedgerEntry{}, fmt.Errorf("failed to add ledger entry: %w", err)
	}

	return entry, nil
}

func NewLedgerRepository(db *database.DB) payroll.LedgerRepository {
	return &ledgerRepository{db: db}
}
