package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/buildcrew/workforce-engine/internal/pkg/keylock"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
	attendancesvc "github.com/buildcrew/workforce-engine/internal/service/attendance"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Config controls how payroll batches run.
type Config struct {
	Location *time.Location
	// Concurrency bounds the workers derived in parallel.
	Concurrency int
	Settings    payroll.Settings
}

type PayrollServiceImpl struct {
	paymentRepo    payroll.PaymentRepository
	ledgerRepo     payroll.LedgerRepository
	attendanceRepo attendance.Repository
	workerRepo     worker.Repository
	clock          clock.Clock
	locks          *keylock.Locker
	cfg            Config
}

func NewPayrollService(
	paymentRepo payroll.PaymentRepository,
	ledgerRepo payroll.LedgerRepository,
	attendanceRepo attendance.Repository,
	workerRepo worker.Repository,
	clk clock.Clock,
	cfg Config,
) payroll.Service {
	if clk == nil {
		clk = clock.System()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &PayrollServiceImpl{
		paymentRepo:    paymentRepo,
		ledgerRepo:     ledgerRepo,
		attendanceRepo: attendanceRepo,
		workerRepo:     workerRepo,
		clock:          clk,
		locks:          keylock.New(),
		cfg:            cfg,
	}
}

// RunPayroll implements payroll.Service.
func (s *PayrollServiceImpl) RunPayroll(ctx context.Context, req payroll.RunPayrollRequest) (payroll.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchResult{}, err
	}

	period := req.Period(s.cfg.Location)
	result := payroll.BatchResult{Period: period}

	workers, missing, err := s.resolveWorkers(ctx, req.WorkerIDs)
	if err != nil {
		return payroll.BatchResult{}, err
	}
	for _, id := range missing {
		result.Failed = append(result.Failed, payroll.FailedPayment{
			WorkerID: id,
			Reason:   payroll.ErrWorkerNotFound.Error(),
			Err:      payroll.ErrWorkerNotFound,
		})
	}

	ids := make([]string, 0, len(workers))
	for _, w := range workers {
		ids = append(ids, w.ID)
	}

	// One read for the whole batch so every worker sees the same record set.
	var records []attendance.Record
	if len(ids) > 0 {
		records, err = s.attendanceRepo.ListByRange(ctx, period.StartDate, period.EndDate, ids)
		if err != nil {
			return payroll.BatchResult{}, fmt.Errorf("failed to list attendance records: %w", err)
		}
	}
	if err := attendancesvc.VerifyRecords("run_payroll", records); err != nil {
		slog.Error("Attendance records are inconsistent", "error", err)
		return payroll.BatchResult{}, err
	}

	byWorker := make(map[string][]attendance.Record, len(workers))
	for _, r := range records {
		byWorker[r.WorkerID] = append(byWorker[r.WorkerID], r)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, w := range workers {
		w := w
		g.Go(func() error {
			payment, err := s.deriveAndSave(gctx, w, byWorker[w.ID], period)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				result.Succeeded = append(result.Succeeded, payment)
				return nil
			case errors.Is(err, payroll.ErrMissingWageConfig),
				errors.Is(err, payroll.ErrUnknownWageType),
				errors.Is(err, payroll.ErrPaymentSettled):
				result.Failed = append(result.Failed, payroll.FailedPayment{WorkerID: w.ID, Reason: err.Error(), Err: err})
				return nil
			default:
				return fmt.Errorf("failed to derive payment for worker %s: %w", w.ID, err)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return payroll.BatchResult{}, err
	}

	sort.Slice(result.Succeeded, func(i, j int) bool { return result.Succeeded[i].WorkerID < result.Succeeded[j].WorkerID })
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].WorkerID < result.Failed[j].WorkerID })

	for _, p := range result.Succeeded {
		for _, warning := range p.Warnings {
			result.Warnings = append(result.Warnings, fmt.Sprintf("worker %s: %s", p.WorkerID, warning))
		}
	}
	for _, f := range result.Failed {
		slog.Warn("Payroll derivation failed", "worker_id", f.WorkerID, "reason", f.Reason)
	}

	slog.Info("Payroll run completed",
		"period_start", period.StartDate.Format(attendance.DateLayout),
		"period_end", period.EndDate.Format(attendance.DateLayout),
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed))

	return result, nil
}

func (s *PayrollServiceImpl) resolveWorkers(ctx context.Context, ids []string) ([]worker.Worker, []string, error) {
	if len(ids) == 0 {
		active, err := s.workerRepo.ListActive(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list active workers: %w", err)
		}
		return active, nil, nil
	}

	seen := make(map[string]bool, len(ids))
	var workers []worker.Worker
	var missing []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		w, err := s.workerRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, worker.ErrWorkerNotFound) {
				missing = append(missing, id)
				continue
			}
			return nil, nil, fmt.Errorf("failed to get worker %s: %w", id, err)
		}
		workers = append(workers, w)
	}
	return workers, missing, nil
}

func (s *PayrollServiceImpl) deriveAndSave(ctx context.Context, w worker.Worker, records []attendance.Record, period attendance.Period) (payroll.PaymentRecord, error) {
	summary := attendancesvc.PeriodSummary(records, w.ID, period)

	outstanding, err := s.ledgerRepo.GetOutstanding(ctx, w.ID, period)
	if err != nil {
		return payroll.PaymentRecord{}, fmt.Errorf("failed to get ledger balance: %w", err)
	}

	payment, err := DerivePayment(w, summary, outstanding, s.cfg.Settings)
	if err != nil {
		return payroll.PaymentRecord{}, err
	}

	unlock := s.locks.Lock(payment.PeriodKey())
	defer unlock()

	return s.paymentRepo.Save(ctx, payment)
}

// RecordPayment implements payroll.Service.
func (s *PayrollServiceImpl) RecordPayment(ctx context.Context, req payroll.RecordPaymentRequest) (payroll.PaymentRecord, error) {
	if err := req.Validate(); err != nil {
		return payroll.PaymentRecord{}, err
	}

	found, err := s.paymentRepo.GetByID(ctx, req.ID)
	if err != nil {
		return payroll.PaymentRecord{}, err
	}

	// Re-read under the period lock that re-derivation also takes.
	unlock := s.locks.Lock(found.PeriodKey())
	defer unlock()

	payment, err := s.paymentRepo.GetByID(ctx, req.ID)
	if err != nil {
		return payroll.PaymentRecord{}, err
	}
	if payment.PaymentStatus == payroll.PaymentStatusPaid {
		return payroll.PaymentRecord{}, payroll.ErrPaymentAlreadyPaid
	}

	remaining := payment.NetPay.Sub(payment.PaidAmount)
	if req.Amount.GreaterThan(remaining) {
		return payroll.PaymentRecord{}, validator.ValidationErrors{{
			Field:   "amount",
			Message: fmt.Sprintf("amount exceeds the outstanding balance of %s", decimal.Max(remaining, decimal.Zero).StringFixed(2)),
			Err:     payroll.ErrInvalidPaymentAmount,
		}}
	}

	now := s.clock.Now().UTC()
	payment.PaidAmount = payment.PaidAmount.Add(req.Amount)
	payment.PaidAt = &now
	payment.PaymentStatus = payroll.PaymentStatusPartial
	if payment.PaidAmount.GreaterThanOrEqual(payment.NetPay) {
		payment.PaymentStatus = payroll.PaymentStatusPaid
	}
	if req.PaymentMethod != nil {
		payment.PaymentMethod = worker.PaymentMethod(*req.PaymentMethod)
	}

	updated, err := s.paymentRepo.Update(ctx, payment)
	if err != nil {
		return payroll.PaymentRecord{}, fmt.Errorf("failed to update payment record: %w", err)
	}

	slog.Info("Payment recorded", "payment_id", updated.ID, "worker_id", updated.WorkerID,
		"amount", req.Amount.StringFixed(2), "status", updated.PaymentStatus)

	return updated, nil
}

// MarkOverdue implements payroll.Service.
func (s *PayrollServiceImpl) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	n, err := s.paymentRepo.MarkOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue payments: %w", err)
	}
	if n > 0 {
		slog.Info("Marked payments overdue", "as_of", asOf.Format(attendance.DateLayout), "count", n)
	}
	return n, nil
}

// GetPayment implements payroll.Service.
func (s *PayrollServiceImpl) GetPayment(ctx context.Context, id string) (payroll.PaymentRecord, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// ListPayments implements payroll.Service.
func (s *PayrollServiceImpl) ListPayments(ctx context.Context, filter payroll.PaymentFilter) ([]payroll.PaymentRecord, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	payments, total, err := s.paymentRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payment records: %w", err)
	}
	return payments, total, nil
}
