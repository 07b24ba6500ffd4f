package payroll

import (
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/shopspring/decimal"
)

// Settings is the organisation-wide payroll configuration.
type Settings struct {
	StandardHours      decimal.Decimal
	OvertimeMultiplier decimal.Decimal
	// PaymentDueDays is counted from the last day of the period.
	PaymentDueDays     int

	ProvidentFundEnabled   bool
	ProvidentFundRate      decimal.Decimal // percent of gross
	StateInsuranceEnabled  bool
	StateInsuranceRate     decimal.Decimal // percent of gross
	ProfessionalTaxEnabled bool
	ProfessionalTaxAmount  decimal.Decimal // flat per period
	IncomeTaxEnabled       bool
	IncomeTaxRate          decimal.Decimal // percent of gross
}

// Deduction detail keys for statutory items.
const (
	DeductionProvidentFund   = "provident_fund"
	DeductionStateInsurance  = "state_insurance"
	DeductionProfessionalTax = "professional_tax"
	DeductionIncomeTax       = "income_tax"
)

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusOverdue:
		return true
	}
	return false
}

// PaymentRecord is the payslip of one worker for one period.
// NetPay always equals GrossPay - Deductions - Advances.
type PaymentRecord struct {
	ID               string
	WorkerID         string
	Period           attendance.Period
	WageType         worker.WageType
	HoursWorked      decimal.Decimal
	OvertimeHours    decimal.Decimal
	PresentDays      int
	HalfDays         int
	WorkingDays      int
	BasePay          decimal.Decimal
	OvertimePay      decimal.Decimal
	GrossPay         decimal.Decimal
	Deductions       decimal.Decimal
	DeductionsDetail map[string]decimal.Decimal
	Advances         decimal.Decimal
	NetPay           decimal.Decimal
	PaymentStatus    PaymentStatus
	PaymentMethod    worker.PaymentMethod
	PaidAmount       decimal.Decimal
	DueDate          time.Time
	PaidAt           *time.Time
	Warnings         []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Settled reports whether money has already moved for this record.
func (p PaymentRecord) Settled() bool {
	return p.PaymentStatus == PaymentStatusPartial || p.PaymentStatus == PaymentStatusPaid
}

// PeriodKey identifies the one record a worker may have for a period.
func (p PaymentRecord) PeriodKey() string {
	return PeriodKey(p.WorkerID, p.Period)
}

func PeriodKey(workerID string, period attendance.Period) string {
	return workerID + "|" + period.StartDate.Format(attendance.DateLayout) +
		"|" + period.EndDate.Format(attendance.DateLayout)
}

// Outstanding is what the advance/deduction ledger holds against a worker for a period.
type Outstanding struct {
	WorkerID   string
	Advances   decimal.Decimal
	Deductions map[string]decimal.Decimal
}

type LedgerKind string

const (
	LedgerAdvance   LedgerKind = "advance"
	LedgerDeduction LedgerKind = "deduction"
)

// LedgerEntry is one advance paid out or ad-hoc deduction owed.
type LedgerEntry struct {
	ID        string
	WorkerID  string
	Kind      LedgerKind
	Label     string
	Amount    decimal.Decimal
	EntryDate time.Time
	CreatedAt time.Time
}

type FailedPayment struct {
	WorkerID string
	Reason   string
	Err      error
}

type BatchResult struct {
	Period    attendance.Period
	Succeeded []PaymentRecord
	Failed    []FailedPayment
	Warnings  []string
}
