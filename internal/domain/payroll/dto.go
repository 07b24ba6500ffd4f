package payroll

import (
	"strings"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== PAYROLL RUN DTOs ==========

// RunPayrollRequest selects a period either by month or by explicit dates.
type RunPayrollRequest struct {
	PeriodMonth int      `json:"period_month,omitempty"`
	PeriodYear  int      `json:"period_year,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	WorkerIDs   []string `json:"worker_ids,omitempty"` // Empty = all active workers
}

func (r *RunPayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	byMonth := r.PeriodMonth != 0 || r.PeriodYear != 0
	byDates := r.StartDate != "" || r.EndDate != ""

	switch {
	case byMonth && byDates:
		errs = append(errs, validator.ValidationError{Field: "period", Message: "use either period_month/period_year or start_date/end_date", Err: ErrInvalidPeriod})
	case byMonth:
		if r.PeriodMonth < 1 || r.PeriodMonth > 12 {
			errs = append(errs, validator.ValidationError{Field: "period_month", Message: "must be between 1 and 12", Err: ErrInvalidPeriod})
		}
		if r.PeriodYear < 2000 {
			errs = append(errs, validator.ValidationError{Field: "period_year", Message: "must be 2000 or later", Err: ErrInvalidPeriod})
		}
	case byDates:
		start, startOK := validator.IsValidDate(r.StartDate)
		end, endOK := validator.IsValidDate(r.EndDate)
		if !startOK {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be in YYYY-MM-DD format"})
		}
		if !endOK {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be in YYYY-MM-DD format"})
		}
		if startOK && endOK && end.Before(start) {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before start_date", Err: ErrInvalidPeriod})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "period", Message: "period is required", Err: ErrInvalidPeriod})
	}

	for _, id := range r.WorkerIDs {
		if !validator.IsValidIdentifier(id) {
			errs = append(errs, validator.ValidationError{Field: "worker_ids", Message: "contains an invalid worker id"})
			break
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Period builds the requested period in loc. Call Validate first.
func (r *RunPayrollRequest) Period(loc *time.Location) attendance.Period {
	if r.PeriodMonth != 0 {
		return attendance.MonthPeriod(r.PeriodYear, time.Month(r.PeriodMonth), loc)
	}
	start, _ := time.ParseInLocation(attendance.DateLayout, r.StartDate, loc)
	end, _ := time.ParseInLocation(attendance.DateLayout, r.EndDate, loc)
	return attendance.Period{StartDate: start, EndDate: end, Type: attendance.PeriodCustom}
}

// ========== PAYMENT DTOs ==========

type RecordPaymentRequest struct {
	ID            string          `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
}

func (r *RecordPaymentRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "is required"})
	}
	if !r.Amount.IsPositive() {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be greater than zero", Err: ErrInvalidPaymentAmount})
	}
	if r.PaymentMethod != nil && !worker.PaymentMethod(*r.PaymentMethod).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "payment_method", Message: "must be one of: bank_transfer, cash, upi, cheque"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MarkOverdueRequest struct {
	AsOf *string `json:"as_of,omitempty"` // YYYY-MM-DD, defaults to today
}

func (r *MarkOverdueRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.AsOf != nil {
		if _, ok := validator.IsValidDate(*r.AsOf); !ok {
			errs = append(errs, validator.ValidationError{Field: "as_of", Message: "must be in YYYY-MM-DD format"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PaymentFilter struct {
	WorkerID    *string `json:"worker_id,omitempty"`
	Status      *string `json:"status,omitempty"`
	PeriodStart *string `json:"period_start,omitempty"` // YYYY-MM-DD
	PeriodEnd   *string `json:"period_end,omitempty"`   // YYYY-MM-DD
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
	SortBy      string  `json:"sort_by"` // period_start, worker_id, net_pay, due_date
	SortOrder   string  `json:"sort_order"`
}

func (f *PaymentFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{Field: "page", Message: "must be a positive number"})
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "must be a positive number"})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "must not exceed 100"})
	}

	if f.Status != nil && !PaymentStatus(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be one of: pending, partial, paid, overdue"})
	}
	if f.PeriodStart != nil {
		if _, ok := validator.IsValidDate(*f.PeriodStart); !ok {
			errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if f.PeriodEnd != nil {
		if _, ok := validator.IsValidDate(*f.PeriodEnd); !ok {
			errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be in YYYY-MM-DD format"})
		}
	}

	if f.SortBy == "" {
		f.SortBy = "period_start"
	} else if !validator.IsInSlice(f.SortBy, []string{"period_start", "worker_id", "net_pay", "due_date"}) {
		errs = append(errs, validator.ValidationError{Field: "sort_by", Message: "must be one of: period_start, worker_id, net_pay, due_date"})
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	} else {
		f.SortOrder = strings.ToLower(f.SortOrder)
		if !validator.IsInSlice(f.SortOrder, []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{Field: "sort_order", Message: "must be one of: asc, desc"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== RESPONSES ==========

type PaymentResponse struct {
	ID               string                     `json:"id"`
	WorkerID         string                     `json:"worker_id"`
	PeriodStart      string                     `json:"period_start"`
	PeriodEnd        string                     `json:"period_end"`
	PeriodType       string                     `json:"period_type"`
	WageType         string                     `json:"wage_type"`
	HoursWorked      decimal.Decimal            `json:"hours_worked"`
	OvertimeHours    decimal.Decimal            `json:"overtime_hours"`
	PresentDays      int                        `json:"present_days"`
	HalfDays         int                        `json:"half_days"`
	WorkingDays      int                        `json:"working_days"`
	BasePay          decimal.Decimal            `json:"base_pay"`
	OvertimePay      decimal.Decimal            `json:"overtime_pay"`
	GrossPay         decimal.Decimal            `json:"gross_pay"`
	Deductions       decimal.Decimal            `json:"deductions"`
	DeductionsDetail map[string]decimal.Decimal `json:"deductions_detail,omitempty"`
	Advances         decimal.Decimal            `json:"advances"`
	NetPay           decimal.Decimal            `json:"net_pay"`
	PaymentStatus    string                     `json:"payment_status"`
	PaymentMethod    string                     `json:"payment_method"`
	PaidAmount       decimal.Decimal            `json:"paid_amount"`
	DueDate          string                     `json:"due_date"`
	PaidAt           *string                    `json:"paid_at,omitempty"`
	Warnings         []string                   `json:"warnings,omitempty"`
	CreatedAt        string                     `json:"created_at"`
	UpdatedAt        string                     `json:"updated_at"`
}

type FailedPaymentResponse struct {
	WorkerID string `json:"worker_id"`
	Reason   string `json:"reason"`
}

type BatchResponse struct {
	PeriodStart string                  `json:"period_start"`
	PeriodEnd   string                  `json:"period_end"`
	Succeeded   []PaymentResponse       `json:"succeeded"`
	Failed      []FailedPaymentResponse `json:"failed"`
	Warnings    []string                `json:"warnings,omitempty"`
}

type ListPaymentsResponse struct {
	Data       []PaymentResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type MarkOverdueResponse struct {
	AsOf    string `json:"as_of"`
	Updated int    `json:"updated"`
}

func NewPaymentResponse(p PaymentRecord) PaymentResponse {
	var paidAt *string
	if p.PaidAt != nil {
		str := p.PaidAt.Format(time.RFC3339)
		paidAt = &str
	}

	return PaymentResponse{
		ID:               p.ID,
		WorkerID:         p.WorkerID,
		PeriodStart:      p.Period.StartDate.Format(attendance.DateLayout),
		PeriodEnd:        p.Period.EndDate.Format(attendance.DateLayout),
		PeriodType:       string(p.Period.Type),
		WageType:         string(p.WageType),
		HoursWorked:      p.HoursWorked,
		OvertimeHours:    p.OvertimeHours,
		PresentDays:      p.PresentDays,
		HalfDays:         p.HalfDays,
		WorkingDays:      p.WorkingDays,
		BasePay:          p.BasePay,
		OvertimePay:      p.OvertimePay,
		GrossPay:         p.GrossPay,
		Deductions:       p.Deductions,
		DeductionsDetail: p.DeductionsDetail,
		Advances:         p.Advances,
		NetPay:           p.NetPay,
		PaymentStatus:    string(p.PaymentStatus),
		PaymentMethod:    string(p.PaymentMethod),
		PaidAmount:       p.PaidAmount,
		DueDate:          p.DueDate.Format(attendance.DateLayout),
		PaidAt:           paidAt,
		Warnings:         p.Warnings,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

func NewPaymentResponses(records []PaymentRecord) []PaymentResponse {
	result := make([]PaymentResponse, 0, len(records))
	for _, r := range records {
		result = append(result, NewPaymentResponse(r))
	}
	return result
}

func NewBatchResponse(b BatchResult) BatchResponse {
	failed := make([]FailedPaymentResponse, 0, len(b.Failed))
	for _, f := range b.Failed {
		failed = append(failed, FailedPaymentResponse{WorkerID: f.WorkerID, Reason: f.Reason})
	}
	return BatchResponse{
		PeriodStart: b.Period.StartDate.Format(attendance.DateLayout),
		PeriodEnd:   b.Period.EndDate.Format(attendance.DateLayout),
		Succeeded:   NewPaymentResponses(b.Succeeded),
		Failed:      failed,
		Warnings:    b.Warnings,
	}
}
