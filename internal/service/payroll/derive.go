package payroll

import (
	"fmt"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/shopspring/decimal"
)

var (
	defaultStandardHours      = decimal.NewFromInt(8)
	defaultOvertimeMultiplier = decimal.NewFromFloat(1.5)
	hundred                   = decimal.NewFromInt(100)
	two                       = decimal.NewFromInt(2)
)

// DerivePayment computes the payslip of w from an attendance summary and the
// ledger balance. It has no side effects.
func DerivePayment(w worker.Worker, summary attendance.Summary, ledger payroll.Outstanding, settings payroll.Settings) (payroll.PaymentRecord, error) {
	if w.Wage == nil {
		return payroll.PaymentRecord{}, payroll.ErrMissingWageConfig
	}
	wage := *w.Wage

	standardHours := settings.StandardHours
	if !standardHours.IsPositive() {
		standardHours = defaultStandardHours
	}
	multiplier := settings.OvertimeMultiplier
	if !multiplier.IsPositive() {
		multiplier = defaultOvertimeMultiplier
	}

	presentDays := decimal.NewFromInt(int64(summary.PresentDays))
	halfDays := decimal.NewFromInt(int64(summary.HalfDays))
	overtimeHours := summary.OvertimeHours

	var warnings []string
	basePay, overtimePay := decimal.Zero, decimal.Zero

	switch wage.Type {
	case worker.WageTypeDaily:
		basePay = wage.DailyRate.Mul(presentDays).
			Add(wage.DailyRate.Div(two).Mul(halfDays))
		if wage.OvertimeEnabled {
			rate := wage.DailyRate.Div(standardHours)
			if wage.OvertimeRate != nil {
				rate = *wage.OvertimeRate
			}
			overtimePay = rate.Mul(multiplier).Mul(overtimeHours)
		}

	case worker.WageTypeHourly:
		regular := summary.TotalHours.Sub(overtimeHours)
		basePay = wage.HourlyRate.Mul(regular)
		if wage.OvertimeEnabled {
			rate := wage.HourlyRate
			if wage.OvertimeRate != nil {
				rate = *wage.OvertimeRate
			}
			overtimePay = rate.Mul(multiplier).Mul(overtimeHours)
		} else {
			overtimePay = wage.HourlyRate.Mul(overtimeHours)
		}

	case worker.WageTypeFixed:
		basePay = wage.FixedSalary
		if summary.TotalWorkingDays == 0 {
			warnings = append(warnings, "no working days recorded in period")
		} else if attended := presentDays.Add(halfDays.Div(two)); attended.LessThan(decimal.NewFromInt(int64(summary.TotalWorkingDays))) {
			basePay = wage.FixedSalary.Mul(attended).
				Div(decimal.NewFromInt(int64(summary.TotalWorkingDays)))
		}
		if wage.OvertimeEnabled && wage.OvertimeRate != nil {
			overtimePay = wage.OvertimeRate.Mul(multiplier).Mul(overtimeHours)
		}

	default:
		return payroll.PaymentRecord{}, fmt.Errorf("%w: %q", payroll.ErrUnknownWageType, wage.Type)
	}

	basePay = basePay.Round(2)
	overtimePay = overtimePay.Round(2)
	grossPay := basePay.Add(overtimePay)

	detail := statutoryDeductions(grossPay, settings)
	for label, amount := range ledger.Deductions {
		detail[label] = detail[label].Add(amount.Round(2))
	}
	deductions := decimal.Zero
	for _, amount := range detail {
		deductions = deductions.Add(amount)
	}

	advances := ledger.Advances.Round(2)
	netPay := grossPay.Sub(deductions).Sub(advances)
	if netPay.IsNegative() {
		warnings = append(warnings, fmt.Sprintf("net pay is negative (%s)", netPay.StringFixed(2)))
	}

	method := wage.PaymentMethod
	if !method.IsValid() {
		method = worker.PaymentMethodBankTransfer
	}

	return payroll.PaymentRecord{
		WorkerID:         w.ID,
		Period:           summary.Period,
		WageType:         wage.Type,
		HoursWorked:      summary.TotalHours,
		OvertimeHours:    overtimeHours,
		PresentDays:      summary.PresentDays,
		HalfDays:         summary.HalfDays,
		WorkingDays:      summary.TotalWorkingDays,
		BasePay:          basePay,
		OvertimePay:      overtimePay,
		GrossPay:         grossPay,
		Deductions:       deductions,
		DeductionsDetail: detail,
		Advances:         advances,
		NetPay:           netPay,
		PaymentStatus:    payroll.PaymentStatusPending,
		PaymentMethod:    method,
		PaidAmount:       decimal.Zero,
		DueDate:          summary.Period.EndDate.AddDate(0, 0, settings.PaymentDueDays),
		Warnings:         warnings,
	}, nil
}

func statutoryDeductions(gross decimal.Decimal, s payroll.Settings) map[string]decimal.Decimal {
	detail := make(map[string]decimal.Decimal)
	percent := func(rate decimal.Decimal) decimal.Decimal {
		return gross.Mul(rate).Div(hundred).Round(2)
	}

	if s.ProvidentFundEnabled {
		detail[payroll.DeductionProvidentFund] = percent(s.ProvidentFundRate)
	}
	if s.StateInsuranceEnabled {
		detail[payroll.DeductionStateInsurance] = percent(s.StateInsuranceRate)
	}
	if s.ProfessionalTaxEnabled {
		detail[payroll.DeductionProfessionalTax] = s.ProfessionalTaxAmount.Round(2)
	}
	if s.IncomeTaxEnabled {
		detail[payroll.DeductionIncomeTax] = percent(s.IncomeTaxRate)
	}
	return detail
}
