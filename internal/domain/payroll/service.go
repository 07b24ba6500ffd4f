package payroll

import (
	"context"
	"time"
)

// Service derives payslips and moves them through their payment lifecycle.
type Service interface {
	// RunPayroll derives a payment for each worker independently. Per-worker
	// failures land in BatchResult.Failed; only infrastructure errors abort.
	RunPayroll(ctx context.Context, req RunPayrollRequest) (BatchResult, error)

	RecordPayment(ctx context.Context, req RecordPaymentRequest) (PaymentRecord, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)

	GetPayment(ctx context.Context, id string) (PaymentRecord, error)
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentRecord, int64, error)
}
