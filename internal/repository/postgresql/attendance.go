package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const recordColumns = `
	id, worker_id, date, status, clock_in, clock_out,
	total_hours, overtime_hours, leave_type, half_day_type,
	project_id, department, employment_type, notes,
	version, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

// entryDocument is the JSONB shape of a punch.
type entryDocument struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Site       string    `json:"site,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	VerifiedBy *string   `json:"verified_by,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

func marshalEntry(e *attendance.Entry) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	doc := entryDocument{
		Timestamp:  e.Timestamp.UTC(),
		Method:     string(e.Method),
		VerifiedBy: e.VerifiedBy,
		Notes:      e.Notes,
	}
	if e.Location != nil {
		doc.Site = e.Location.Site
		doc.Latitude = e.Location.Latitude
		doc.Longitude = e.Location.Longitude
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return b, nil
}

func unmarshalEntry(b []byte) (*attendance.Entry, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var doc entryDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	e := &attendance.Entry{
		Timestamp:  doc.Timestamp,
		Method:     attendance.Method(doc.Method),
		VerifiedBy: doc.VerifiedBy,
		Notes:      doc.Notes,
	}
	if doc.Site != "" || doc.Latitude != nil || doc.Longitude != nil {
		e.Location = &attendance.Location{Site: doc.Site, Latitude: doc.Latitude, Longitude: doc.Longitude}
	}
	return e, nil
}

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var (
		rec                     attendance.Record
		status, employmentType  string
		halfDayType             *string
		clockInDoc, clockOutDoc []byte
	)
	err := row.Scan(
		&rec.ID, &rec.WorkerID, &rec.Date, &status, &clockInDoc, &clockOutDoc,
		&rec.TotalHours, &rec.OvertimeHours, &rec.LeaveType, &halfDayType,
		&rec.ProjectID, &rec.Department, &employmentType, &rec.Notes,
		&rec.Version, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	rec.Status = attendance.Status(status)
	rec.EmploymentType = worker.EmploymentType(employmentType)
	if halfDayType != nil {
		h := attendance.HalfDayType(*halfDayType)
		rec.HalfDayType = &h
	}
	if rec.ClockIn, err = unmarshalEntry(clockInDoc); err != nil {
		return attendance.Record{}, err
	}
	if rec.ClockOut, err = unmarshalEntry(clockOutDoc); err != nil {
		return attendance.Record{}, err
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]attendance.Record, error) {
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}
	return records, nil
}

func halfDayArg(h *attendance.HalfDayType) *string {
	if h == nil {
		return nil
	}
	s := string(*h)
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create implements attendance.Repository.
func (a *attendanceRepository) Create(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to generate record id: %w", err)
	}
	clockIn, err := marshalEntry(record.ClockIn)
	if err != nil {
		return attendance.Record{}, err
	}
	clockOut, err := marshalEntry(record.ClockOut)
	if err != nil {
		return attendance.Record{}, err
	}

	query := `
		INSERT INTO attendance_records (
			id, worker_id, date, status, clock_in, clock_out,
			total_hours, overtime_hours, leave_type, half_day_type,
			project_id, department, employment_type, notes, version
		) VALUES (
			$1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1
		)
		ON CONFLICT (worker_id, date) DO NOTHING
		RETURNING ` + recordColumns

	created, err := scanRecord(q.QueryRow(ctx, query,
		id.String(),
		record.WorkerID,
		record.Date.Format(attendance.DateLayout),
		string(record.Status),
		clockIn,
		clockOut,
		record.TotalHours,
		record.OvertimeHours,
		record.LeaveType,
		halfDayArg(record.HalfDayType),
		record.ProjectID,
		record.Department,
		string(record.EmploymentType),
		record.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return created, nil
}

// Update implements attendance.Repository.
func (a *attendanceRepository) Update(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	if _, err := uuid.Parse(record.ID); err != nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	clockIn, err := marshalEntry(record.ClockIn)
	if err != nil {
		return attendance.Record{}, err
	}
	clockOut, err := marshalEntry(record.ClockOut)
	if err != nil {
		return attendance.Record{}, err
	}

	query := `
		UPDATE attendance_records SET
			status = $3,
			clock_in = $4,
			clock_out = $5,
			total_hours = $6,
			overtime_hours = $7,
			leave_type = $8,
			half_day_type = $9,
			project_id = $10,
			notes = $11,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + recordColumns

	updated, err := scanRecord(q.QueryRow(ctx, query,
		record.ID,
		record.Version,
		string(record.Status),
		clockIn,
		clockOut,
		record.TotalHours,
		record.OvertimeHours,
		record.LeaveType,
		halfDayArg(record.HalfDayType),
		record.ProjectID,
		record.Notes,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return attendance.Record{}, fmt.Errorf("failed to update attendance record: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM attendance_records WHERE id = $1)`, record.ID).Scan(&exists); err != nil {
		return attendance.Record{}, fmt.Errorf("failed to check attendance record: %w", err)
	}
	if !exists {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return attendance.Record{}, attendance.ErrVersionConflict
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	if _, err := uuid.Parse(id); err != nil {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}

	rec, err := scanRecord(q.QueryRow(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrRecordNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance record by ID: %w", err)
	}
	return rec, nil
}

// GetByWorkerAndDate implements attendance.Repository.
func (a *attendanceRepository) GetByWorkerAndDate(ctx context.Context, workerID string, date time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE worker_id = $1 AND date = $2::date`

	rec, err := scanRecord(q.QueryRow(ctx, query, workerID, date.Format(attendance.DateLayout)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance record by worker and date: %w", err)
	}
	return &rec, nil
}

// ListByDate implements attendance.Repository.
func (a *attendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE date = $1::date ORDER BY worker_id`

	rows, err := q.Query(ctx, query, date.Format(attendance.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records by date: %w", err)
	}
	return collectRecords(rows)
}

// ListByRange implements attendance.Repository.
func (a *attendanceRepository) ListByRange(ctx context.Context, start, end time.Time, workerIDs []string) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	where := "date >= $1::date AND date <= $2::date"
	args := []interface{}{start.Format(attendance.DateLayout), end.Format(attendance.DateLayout)}
	if len(workerIDs) > 0 {
		where += " AND worker_id = ANY($3)"
		args = append(args, workerIDs)
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE ` + where + ` ORDER BY date, worker_id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records by range: %w", err)
	}
	return collectRecords(rows)
}

// List implements attendance.Repository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "1=1"
	args := []interface{}{}
	argIdx := 1

	if filter.WorkerID != nil && *filter.WorkerID != "" {
		baseWhere += fmt.Sprintf(" AND worker_id = $%d", argIdx)
		args = append(args, *filter.WorkerID)
		argIdx++
	}
	if filter.ProjectID != nil && *filter.ProjectID != "" {
		baseWhere += fmt.Sprintf(" AND project_id = $%d", argIdx)
		args = append(args, *filter.ProjectID)
		argIdx++
	}
	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND date = $%d::date", argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND date >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND date <= $%d::date", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	// Count total
	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM attendance_records WHERE "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	// Build ORDER BY
	orderByField := "date"
	switch filter.SortBy {
	case "worker_id":
		orderByField = "worker_id"
	case "status":
		orderByField = "status"
	case "created_at":
		orderByField = "created_at"
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
		FROM attendance_records
		WHERE %s
		ORDER BY %s %s, worker_id %s, id %s
		LIMIT $%d OFFSET $%d
	`, recordColumns, baseWhere, orderByField, sortOrder, sortOrder, sortOrder, argIdx, argIdx+1)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance records: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// Delete implements attendance.Repository.
func (a *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, a.db)

	if _, err := uuid.Parse(id); err != nil {
		return attendance.ErrRecordNotFound
	}

	tag, err := q.Exec(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}
	return nil
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}
