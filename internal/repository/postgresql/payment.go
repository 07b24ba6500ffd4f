package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const paymentColumns = `
	id, worker_id, period_start, period_end, period_type, wage_type,
	hours_worked, overtime_hours, present_days, half_days, working_days,
	base_pay, overtime_pay, gross_pay, deductions, deductions_detail,
	advances, net_pay, payment_status, payment_method, paid_amount,
	due_date, paid_at, warnings, created_at, updated_at`

type paymentRepository struct {
	db *database.DB
}

func scanPayment(row pgx.Row) (payroll.PaymentRecord, error) {
	var (
		p                                  payroll.PaymentRecord
		periodType, wageType, status, meth string
		detailJSON, warningsJSON           []byte
	)
	err := row.Scan(
		&p.ID, &p.WorkerID, &p.Period.StartDate, &p.Period.EndDate, &periodType, &wageType,
		&p.HoursWorked, &p.OvertimeHours, &p.PresentDays, &p.HalfDays, &p.WorkingDays,
		&p.BasePay, &p.OvertimePay, &p.GrossPay, &p.Deductions, &detailJSON,
		&p.Advances, &p.NetPay, &status, &meth, &p.PaidAmount,
		&p.DueDate, &p.PaidAt, &warningsJSON, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return payroll.PaymentRecord{}, err
	}

	p.Period.Type = attendance.PeriodType(periodType)
	p.WageType = worker.WageType(wageType)
	p.PaymentStatus = payroll.PaymentStatus(status)
	p.PaymentMethod = worker.PaymentMethod(meth)

	p.DeductionsDetail = make(map[string]decimal.Decimal)
	if len(detailJSON) > 0 {
		if err := json.Unmarshal(detailJSON, &p.DeductionsDetail); err != nil {
			return payroll.PaymentRecord{}, fmt.Errorf("failed to unmarshal deductions detail: %w", err)
		}
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &p.Warnings); err != nil {
			return payroll.PaymentRecord{}, fmt.Errorf("failed to unmarshal warnings: %w", err)
		}
	}
	return p, nil
}

// Save implements payroll.PaymentRepository.
func (r *paymentRepository) Save(ctx context.Context, record payroll.PaymentRecord) (payroll.PaymentRecord, error) {
	detail := record.DeductionsDetail
	if detail == nil {
		detail = map[string]decimal.Decimal{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return payroll.PaymentRecord{}, fmt.Errorf("failed to marshal deductions detail: %w", err)
	}
	warnings := record.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return payroll.PaymentRecord{}, fmt.Errorf("failed to marshal warnings: %w", err)
	}

	var saved payroll.PaymentRecord
	err = WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		q := GetQuerier(txCtx, r.db)

		var existingID, existingStatus string
		err := q.QueryRow(txCtx, `
			SELECT id, payment_status
			FROM payment_records
			WHERE worker_id = $1 AND period_start = $2::date AND period_end = $3::date
			FOR UPDATE
		`, record.WorkerID,
			record.Period.StartDate.Format(attendance.DateLayout),
			record.Period.EndDate.Format(attendance.DateLayout),
		).Scan(&existingID, &existingStatus)

		switch {
		case errors.Is(err, pgx.ErrNoRows):
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate payment id: %w", err)
			}
			existingID = id.String()
		case err != nil:
			return fmt.Errorf("failed to lock payment record: %w", err)
		default:
			if payroll.PaymentStatus(existingStatus) == payroll.PaymentStatusPartial ||
				payroll.PaymentStatus(existingStatus) == payroll.PaymentStatusPaid {
				return payroll.ErrPaymentSettled
			}
		}

		query := `
			INSERT INTO payment_records (
				id, worker_id, period_start, period_end, period_type, wage_type,
				hours_worked, overtime_hours, present_days, half_days, working_days,
				base_pay, overtime_pay, gross_pay, deductions, deductions_detail,
				advances, net_pay, payment_status, payment_method, paid_amount,
				due_date, paid_at, warnings
			) VALUES (
				$1, $2, $3::date, $4::date, $5, $6, $7, $8, $9, $10, $11, $12,
				$13, $14, $15, $16, $17, $18, $19, $20, $21, $22::date, $23, $24
			)
			ON CONFLICT (id) DO UPDATE SET
				period_type = EXCLUDED.period_type,
				wage_type = EXCLUDED.wage_type,
				hours_worked = EXCLUDED.hours_worked,
				overtime_hours = EXCLUDED.overtime_hours,
				present_days = EXCLUDED.present_days,
				half_days = EXCLUDED.half_days,
				working_days = EXCLUDED.working_days,
				base_pay = EXCLUDED.base_pay,
				overtime_pay = EXCLUDED.overtime_pay,
				gross_pay = EXCLUDED.gross_pay,
				deductions = EXCLUDED.deductions,
				deductions_detail = EXCLUDED.deductions_detail,
				advances = EXCLUDED.advances,
				net_pay = EXCLUDED.net_pay,
				payment_status = EXCLUDED.payment_status,
				payment_method = EXCLUDED.payment_method,
				paid_amount = EXCLUDED.paid_amount,
				due_date = EXCLUDED.due_date,
				paid_at = EXCLUDED.paid_at,
				warnings = EXCLUDED.warnings,
				updated_at = NOW()
			RETURNING ` + paymentColumns

		saved, err = scanPayment(q.QueryRow(txCtx, query,
			existingID,
			record.WorkerID,
			record.Period.StartDate.Format(attendance.DateLayout),
			record.Period.EndDate.Format(attendance.DateLayout),
			string(record.Period.Type),
			string(record.WageType),
			record.HoursWorked,
			record.OvertimeHours,
			record.PresentDays,
			record.HalfDays,
			record.WorkingDays,
			record.BasePay,
			record.OvertimePay,
			record.GrossPay,
			record.Deductions,
			detailJSON,
			record.Advances,
			record.NetPay,
			string(record.PaymentStatus),
			string(record.PaymentMethod),
			record.PaidAmount,
			record.DueDate.Format(attendance.DateLayout),
			record.PaidAt,
			warningsJSON,
		))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("payment for worker %s was saved concurrently: %w", record.WorkerID, err)
			}
			return fmt.Errorf("failed to save payment record: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.PaymentRecord{}, err
	}

	return saved, nil
}

// GetByID implements payroll.PaymentRepository.
func (r *paymentRepository) GetByID(ctx context.Context, id string) (payroll.PaymentRecord, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := uuid.Parse(id); err != nil {
		return payroll.PaymentRecord{}, payroll.ErrPaymentNotFound
	}

	p, err := scanPayment(q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payment_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PaymentRecord{}, payroll.ErrPaymentNotFound
		}
		return payroll.PaymentRecord{}, fmt.Errorf("failed to get payment record by ID: %w", err)
	}
	return p, nil
}

// GetByWorkerPeriod implements payroll.PaymentRepository.
func (r *paymentRepository) GetByWorkerPeriod(ctx context.Context, workerID string, period attendance.Period) (*payroll.PaymentRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + paymentColumns + `
		FROM payment_records
		WHERE worker_id = $1 AND period_start = $2::date AND period_end = $3::date
	`

	p, err := scanPayment(q.QueryRow(ctx, query, workerID,
		period.StartDate.Format(attendance.DateLayout),
		period.EndDate.Format(attendance.DateLayout),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment record by worker and period: %w", err)
	}
	return &p, nil
}

// List implements payroll.PaymentRepository.
func (r *paymentRepository) List(ctx context.Context, filter payroll.PaymentFilter) ([]payroll.PaymentRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.WorkerID != nil && *filter.WorkerID != "" {
		baseWhere += fmt.Sprintf(" AND worker_id = $%d", argIdx)
		args = append(args, *filter.WorkerID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND payment_status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.PeriodStart != nil && *filter.PeriodStart != "" {
		baseWhere += fmt.Sprintf(" AND period_start >= $%d::date", argIdx)
		args = append(args, *filter.PeriodStart)
		argIdx++
	}
	if filter.PeriodEnd != nil && *filter.PeriodEnd != "" {
		baseWhere += fmt.Sprintf(" AND period_end <= $%d::date", argIdx)
		args = append(args, *filter.PeriodEnd)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payment_records WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payment records: %w", err)
	}

	orderByField := "period_start"
	switch filter.SortBy {
	case "worker_id":
		orderByField = "worker_id"
	case "net_pay":
		orderByField = "net_pay"
	case "due_date":
		orderByField = "due_date"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	query := fmt.Sprintf(`
		SELECT %s
		FROM payment_records
		WHERE %s
		ORDER BY %s %s, worker_id %s
		LIMIT $%d OFFSET $%d
	`, paymentColumns, baseWhere, orderByField, sortOrder, sortOrder, argIdx, argIdx+1)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query payment records: %w", err)
	}
	defer rows.Close()

	var payments []payroll.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment record: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payment records: %w", err)
	}

	return payments, total, nil
}

// Update implements payroll.PaymentRepository.
func (r *paymentRepository) Update(ctx context.Context, record payroll.PaymentRecord) (payroll.PaymentRecord, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := uuid.Parse(record.ID); err != nil {
		return payroll.PaymentRecord{}, payroll.ErrPaymentNotFound
	}

	query := `
		UPDATE payment_records SET
			payment_status = $2,
			payment_method = $3,
			paid_amount = $4,
			paid_at = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + paymentColumns

	p, err := scanPayment(q.QueryRow(ctx, query,
		record.ID,
		string(record.PaymentStatus),
		string(record.PaymentMethod),
		record.PaidAmount,
		record.PaidAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PaymentRecord{}, payroll.ErrPaymentNotFound
		}
		return payroll.PaymentRecord{}, fmt.Errorf("failed to update payment record: %w", err)
	}
	return p, nil
}

// MarkOverdue implements payroll.PaymentRepository.
func (r *paymentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payment_records
		SET payment_status = $1, updated_at = NOW()
		WHERE payment_status = $2 AND due_date < $3::date
	`, string(payroll.PaymentStatusOverdue), string(payroll.PaymentStatusPending), asOf.Format(attendance.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue payments: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func NewPaymentRepository(db *database.DB) payroll.PaymentRepository {
	return &paymentRepository{db: db}
}
