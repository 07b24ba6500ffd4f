package worker

import (
	"time"

	"github.com/shopspring/decimal"
)

type Worker struct {
	ID             string
	Name           string
	Status         Status
	Department     string
	EmploymentType EmploymentType
	ProjectID      *string
	Wage           *WageConfig
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusTerminated:
		return true
	}
	return false
}

type EmploymentType string

const (
	EmploymentTypePermanent     EmploymentType = "permanent"
	EmploymentTypeContract      EmploymentType = "contract"
	EmploymentTypeDailyWage     EmploymentType = "daily_wage"
	EmploymentTypeSubcontractor EmploymentType = "subcontractor"
)

type WageType string

const (
	WageTypeDaily  WageType = "daily"
	WageTypeHourly WageType = "hourly"
	WageTypeFixed  WageType = "fixed"
)

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCash, PaymentMethodUPI, PaymentMethodCheque:
		return true
	}
	return false
}

// WageConfig is how a worker is paid. Only the rate matching Type is read.
type WageConfig struct {
	Type            WageType
	DailyRate       decimal.Decimal
	HourlyRate      decimal.Decimal
	FixedSalary     decimal.Decimal
	OvertimeEnabled bool
	// OvertimeRate is the per-hour overtime base before the multiplier.
	OvertimeRate  *decimal.Decimal
	PaymentMethod PaymentMethod
}

func (w Worker) IsActive() bool {
	return w.Status == StatusActive
}
