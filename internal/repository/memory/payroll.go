package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]payroll.PaymentRecord // by ID
	byPeriod map[string]string                // worker|start|end -> ID
	now      func() time.Time
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]payroll.PaymentRecord),
		byPeriod: make(map[string]string),
		now:      time.Now,
	}
}

func periodKey(workerID string, p attendance.Period) string {
	return workerID + "|" + p.StartDate.Format(attendance.DateLayout) + "|" + p.EndDate.Format(attendance.DateLayout)
}

func (m *PaymentRepository) Save(_ context.Context, record payroll.PaymentRecord) (payroll.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	key := periodKey(record.WorkerID, record.Period)

	if id, ok := m.byPeriod[key]; ok {
		stored := m.payments[id]
		if stored.Settled() {
			return payroll.PaymentRecord{}, payroll.ErrPaymentSettled
		}
		record.ID = stored.ID
		record.CreatedAt = stored.CreatedAt
	} else {
		id, err := uuid.NewV7()
		if err != nil {
			return payroll.PaymentRecord{}, err
		}
		record.ID = id.String()
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	m.payments[record.ID] = clonePayment(record)
	m.byPeriod[key] = record.ID
	return clonePayment(record), nil
}

func (m *PaymentRepository) GetByID(_ context.Context, id string) (payroll.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return payroll.PaymentRecord{}, payroll.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (m *PaymentRepository) GetByWorkerPeriod(_ context.Context, workerID string, period attendance.Period) (*payroll.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byPeriod[periodKey(workerID, period)]
	if !ok {
		return nil, nil
	}
	p := clonePayment(m.payments[id])
	return &p, nil
}

func (m *PaymentRepository) List(_ context.Context, f payroll.PaymentFilter) ([]payroll.PaymentRecord, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []payroll.PaymentRecord
	for _, p := range m.payments {
		start := p.Period.StartDate.Format(attendance.DateLayout)
		end := p.Period.EndDate.Format(attendance.DateLayout)

		if f.WorkerID != nil && *f.WorkerID != "" && p.WorkerID != *f.WorkerID {
			continue
		}
		if f.Status != nil && *f.Status != "" && string(p.PaymentStatus) != *f.Status {
			continue
		}
		if f.PeriodStart != nil && *f.PeriodStart != "" && start < *f.PeriodStart {
			continue
		}
		if f.PeriodEnd != nil && *f.PeriodEnd != "" && end > *f.PeriodEnd {
			continue
		}
		matched = append(matched, clonePayment(p))
	}

	less := func(a, b payroll.PaymentRecord) bool {
		switch f.SortBy {
		case "worker_id":
			if a.WorkerID != b.WorkerID {
				return a.WorkerID < b.WorkerID
			}
		case "net_pay":
			if !a.NetPay.Equal(b.NetPay) {
				return a.NetPay.LessThan(b.NetPay)
			}
		case "due_date":
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
		default:
			if !a.Period.StartDate.Equal(b.Period.StartDate) {
				return a.Period.StartDate.Before(b.Period.StartDate)
			}
		}
		return a.ID < b.ID
	}
	sort.Slice(matched, func(i, j int) bool {
		if f.SortOrder == "desc" {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := int64(len(matched))
	return paginate(matched, f.Page, f.Limit), total, nil
}

func (m *PaymentRepository) Update(_ context.Context, record payroll.PaymentRecord) (payroll.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.payments[record.ID]
	if !ok {
		return payroll.PaymentRecord{}, payroll.ErrPaymentNotFound
	}

	stored.PaymentStatus = record.PaymentStatus
	stored.PaymentMethod = record.PaymentMethod
	stored.PaidAmount = record.PaidAmount
	stored.PaidAt = record.PaidAt
	stored.UpdatedAt = m.now().UTC()

	m.payments[stored.ID] = stored
	return clonePayment(stored), nil
}

func (m *PaymentRepository) MarkOverdue(_ context.Context, asOf time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := asOf.Format(attendance.DateLayout)
	now := m.now().UTC()
	updated := 0
	for id, p := range m.payments {
		if p.PaymentStatus == payroll.PaymentStatusPending && p.DueDate.Format(attendance.DateLayout) < cutoff {
			p.PaymentStatus = payroll.PaymentStatusOverdue
			p.UpdatedAt = now
			m.payments[id] = p
			updated++
		}
	}
	return updated, nil
}

func clonePayment(p payroll.PaymentRecord) payroll.PaymentRecord {
	if p.DeductionsDetail != nil {
		detail := make(map[string]decimal.Decimal, len(p.DeductionsDetail))
		for k, v := range p.DeductionsDetail {
			detail[k] = v
		}
		p.DeductionsDetail = detail
	}
	if p.Warnings != nil {
		p.Warnings = append([]string(nil), p.Warnings...)
	}
	if p.PaidAt != nil {
		t := *p.PaidAt
		p.PaidAt = &t
	}
	return p
}

type LedgerRepository struct {
	mu      sync.RWMutex
	entries []payroll.LedgerEntry
	now     func() time.Time
}

func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{now: time.Now}
}

// GetOutstanding sums the worker's entries dated inside period.
func (m *LedgerRepository) GetOutstanding(_ context.Context, workerID string, period attendance.Period) (payroll.Outstanding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := payroll.Outstanding{
		WorkerID:   workerID,
		Advances:   decimal.Zero,
		Deductions: make(map[string]decimal.Decimal),
	}
	for _, e := range m.entries {
		if e.WorkerID != workerID || !period.Contains(e.EntryDate) {
			continue
		}
		switch e.Kind {
		case payroll.LedgerAdvance:
			out.Advances = out.Advances.Add(e.Amount)
		case payroll.LedgerDeduction:
			out.Deductions[e.Label] = out.Deductions[e.Label].Add(e.Amount)
		}
	}
	return out, nil
}

func (m *LedgerRepository) AddEntry(_ context.Context, entry payroll.LedgerEntry) (payroll.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.LedgerEntry{}, err
	}
	entry.ID = id.String()
	entry.CreatedAt = m.now().UTC()
	m.entries = append(m.entries, entry)
	return entry, nil
}
