package attendance

import (
	"strings"
	"time"

	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type ScanRequest struct {
	// Payload is the raw QR content. When empty, WorkerID identifies the worker.
	Payload    string   `json:"payload,omitempty"`
	WorkerID   string   `json:"worker_id,omitempty"`
	ProjectID  *string  `json:"project_id,omitempty"`
	Action     string   `json:"action"`
	Method     string   `json:"method,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Timestamp  *string  `json:"timestamp,omitempty"` // RFC3339, defaults to now
	VerifiedBy *string  `json:"verified_by,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

func (r *ScanRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Payload) && validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "payload",
			Message: "payload or worker_id is required",
			Err:     ErrInvalidPayload,
		})
	}

	if !validator.IsEmpty(r.WorkerID) && !validator.IsValidIdentifier(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id contains invalid characters",
		})
	}

	if !Action(r.Action).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "action",
			Message: "action must be one of: clock_in, clock_out",
		})
	}

	if r.Method != "" && (!Method(r.Method).IsValid() || Method(r.Method) == MethodManual) {
		errs = append(errs, validator.ValidationError{
			Field:   "method",
			Message: "method must be one of: qr_scan, biometric, mobile_app, imported",
		})
	}

	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if r.Timestamp != nil {
		if _, ok := validator.IsValidDateTime(*r.Timestamp); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "timestamp",
				Message: "timestamp must be an RFC3339 date-time",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ScanMethod returns the requested method, defaulting by how the worker was identified.
func (r *ScanRequest) ScanMethod() Method {
	if r.Method != "" {
		return Method(r.Method)
	}
	if r.Payload != "" {
		return MethodQRScan
	}
	return MethodMobileApp
}

func validateCoordinates(lat, lon *float64) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if (lat == nil) != (lon == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude and longitude must be provided together",
		})
		return errs
	}
	if lat != nil && !validator.IsValidLatitude(*lat) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}
	if lon != nil && !validator.IsValidLongitude(*lon) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}
	return errs
}

// isValidPunchTime accepts a time of day ("15:04", "15:04:05") or an RFC3339 date-time.
func isValidPunchTime(s string) bool {
	if _, ok := validator.IsValidClockTime(s); ok {
		return true
	}
	_, ok := validator.IsValidDateTime(s)
	return ok
}

type ManualEntryRequest struct {
	WorkerID    string   `json:"worker_id"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Status      string   `json:"status"`
	ClockIn     *string  `json:"clock_in,omitempty"`
	ClockOut    *string  `json:"clock_out,omitempty"`
	LeaveType   *string  `json:"leave_type,omitempty"`
	HalfDayType *string  `json:"half_day_type,omitempty"`
	ProjectID   *string  `json:"project_id,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	RecordedBy  *string  `json:"recorded_by,omitempty"`
}

func (r *ManualEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
			Err:     ErrUnknownWorker,
		})
	}

	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if !Status(r.Status).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(Statuses, ", "),
		})
	}

	errs = append(errs, validatePatchFields(r.ClockIn, r.ClockOut, r.HalfDayType)...)
	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type EditRecordRequest struct {
	ID          string   `json:"-"`
	Status      *string  `json:"status,omitempty"`
	ClockIn     *string  `json:"clock_in,omitempty"`
	ClockOut    *string  `json:"clock_out,omitempty"`
	LeaveType   *string  `json:"leave_type,omitempty"`
	HalfDayType *string  `json:"half_day_type,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	EditedBy    *string  `json:"edited_by,omitempty"`
}

func (r *EditRecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}

	if r.Status != nil && !Status(*r.Status).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(Statuses, ", "),
		})
	}

	errs = append(errs, validatePatchFields(r.ClockIn, r.ClockOut, r.HalfDayType)...)
	errs = append(errs, validateCoordinates(r.Latitude, r.Longitude)...)

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func validatePatchFields(clockIn, clockOut, halfDayType *string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if clockIn != nil && !isValidPunchTime(*clockIn) {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_in",
			Message: "clock_in must be HH:MM, HH:MM:SS or an RFC3339 date-time",
		})
	}
	if clockOut != nil && !isValidPunchTime(*clockOut) {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_out",
			Message: "clock_out must be HH:MM, HH:MM:SS or an RFC3339 date-time",
		})
	}
	if halfDayType != nil && !HalfDayType(*halfDayType).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "half_day_type",
			Message: "half_day_type must be one of: first_half, second_half",
		})
	}
	return errs
}

type MarkAllPresentRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
	// WorkerIDs narrows the roster. Empty means every active worker.
	WorkerIDs  []string `json:"worker_ids,omitempty"`
	RecordedBy *string  `json:"recorded_by,omitempty"`
}

func (r *MarkAllPresentRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SummaryRequest struct {
	WorkerID  string `json:"worker_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Type      string `json:"type"`
}

func (r *SummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.WorkerID) {
		errs = append(errs, validator.ValidationError{
			Field:   "worker_id",
			Message: "worker_id is required",
		})
	}

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
			Err:     ErrInvalidPeriod,
		})
	}

	if r.Type != "" {
		validTypes := []string{"daily", "weekly", "monthly", "yearly", "custom"}
		if !validator.IsInSlice(r.Type, validTypes) {
			errs = append(errs, validator.ValidationError{
				Field:   "type",
				Message: "type must be one of: daily, weekly, monthly, yearly, custom",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Period builds the requested period in loc. Call Validate first.
func (r *SummaryRequest) Period(loc *time.Location) Period {
	start, _ := time.ParseInLocation(DateLayout, r.StartDate, loc)
	end, _ := time.ParseInLocation(DateLayout, r.EndDate, loc)
	periodType := PeriodCustom
	if r.Type != "" {
		periodType = PeriodType(r.Type)
	}
	return Period{StartDate: start, EndDate: end, Type: periodType}
}

type RecordFilter struct {
	// Search & Filter
	WorkerID  *string `json:"worker_id,omitempty"`
	ProjectID *string `json:"project_id,omitempty"`
	Date      *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status    *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, worker_id, status, created_at
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	// Page validation
	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	// Limit validation
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(Statuses, ", "),
		})
	}

	// Date validation
	dates := []struct {
		field string
		value *string
	}{
		{"date", f.Date},
		{"start_date", f.StartDate},
		{"end_date", f.EndDate},
	}
	for _, d := range dates {
		if d.value != nil && *d.value != "" {
			if _, valid := validator.IsValidDate(*d.value); !valid {
				errs = append(errs, validator.ValidationError{
					Field:   d.field,
					Message: d.field + " must be in YYYY-MM-DD format",
				})
			}
		}
	}

	// Sort validation
	if f.SortBy != "" {
		validSortFields := []string{"date", "worker_id", "status", "created_at"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: date, worker_id, status, created_at",
			})
		}
	} else {
		f.SortBy = "date"
	}

	if f.SortOrder != "" {
		f.SortOrder = strings.ToLower(f.SortOrder)
		if !validator.IsInSlice(f.SortOrder, []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// ========================================
// RESPONSES
// ========================================

type EntryResponse struct {
	Timestamp  string   `json:"timestamp"`
	Method     string   `json:"method"`
	Site       *string  `json:"site,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	VerifiedBy *string  `json:"verified_by,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
}

type RecordResponse struct {
	ID             string           `json:"id"`
	WorkerID       string           `json:"worker_id"`
	Date           string           `json:"date"`
	ClockIn        *EntryResponse   `json:"clock_in,omitempty"`
	ClockOut       *EntryResponse   `json:"clock_out,omitempty"`
	Status         string           `json:"status"`
	TotalHours     *decimal.Decimal `json:"total_hours,omitempty"`
	OvertimeHours  *decimal.Decimal `json:"overtime_hours,omitempty"`
	LeaveType      *string          `json:"leave_type,omitempty"`
	HalfDayType    *string          `json:"half_day_type,omitempty"`
	ProjectID      *string          `json:"project_id,omitempty"`
	Department     string           `json:"department,omitempty"`
	EmploymentType string           `json:"employment_type,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
	Version        int              `json:"version"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
}

type ListRecordsResponse struct {
	Data       []RecordResponse `json:"data"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}

type ScanResponse struct {
	Allowed bool            `json:"allowed"`
	Action  string          `json:"action"`
	Reason  string          `json:"reason,omitempty"`
	Code    string          `json:"code,omitempty"`
	Record  *RecordResponse `json:"record,omitempty"`
}

type MarkAllPresentResponse struct {
	Date       string `json:"date"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	Ineligible int    `json:"ineligible"`
}

type SnapshotResponse struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Present  int    `json:"present"`
	Absent   int    `json:"absent"`
	Late     int    `json:"late"`
	HalfDay  int    `json:"half_day"`
	OnLeave  int    `json:"on_leave"`
	Overtime int    `json:"overtime"`
	Holiday  int    `json:"holiday"`
	Weekend  int    `json:"weekend"`
}

type SummaryResponse struct {
	WorkerID             string          `json:"worker_id"`
	StartDate            string          `json:"start_date"`
	EndDate              string          `json:"end_date"`
	PeriodType           string          `json:"period_type"`
	PresentDays          int             `json:"present_days"`
	AbsentDays           int             `json:"absent_days"`
	LateDays             int             `json:"late_days"`
	HalfDays             int             `json:"half_days"`
	LeaveDays            int             `json:"leave_days"`
	HolidayDays          int             `json:"holiday_days"`
	WeekendDays          int             `json:"weekend_days"`
	TotalWorkingDays     int             `json:"total_working_days"`
	TotalHours           decimal.Decimal `json:"total_hours"`
	OvertimeHours        decimal.Decimal `json:"overtime_hours"`
	AttendancePercentage decimal.Decimal `json:"attendance_percentage"`
}

func NewEntryResponse(e *Entry) *EntryResponse {
	if e == nil {
		return nil
	}
	resp := &EntryResponse{
		Timestamp:  e.Timestamp.Format(time.RFC3339),
		Method:     string(e.Method),
		VerifiedBy: e.VerifiedBy,
		Notes:      e.Notes,
	}
	if e.Location != nil {
		if e.Location.Site != "" {
			site := e.Location.Site
			resp.Site = &site
		}
		resp.Latitude = e.Location.Latitude
		resp.Longitude = e.Location.Longitude
	}
	return resp
}

func NewRecordResponse(r Record) RecordResponse {
	var halfDay *string
	if r.HalfDayType != nil {
		h := string(*r.HalfDayType)
		halfDay = &h
	}

	return RecordResponse{
		ID:             r.ID,
		WorkerID:       r.WorkerID,
		Date:           r.Date.Format(DateLayout),
		ClockIn:        NewEntryResponse(r.ClockIn),
		ClockOut:       NewEntryResponse(r.ClockOut),
		Status:         string(r.Status),
		TotalHours:     r.TotalHours,
		OvertimeHours:  r.OvertimeHours,
		LeaveType:      r.LeaveType,
		HalfDayType:    halfDay,
		ProjectID:      r.ProjectID,
		Department:     r.Department,
		EmploymentType: string(r.EmploymentType),
		Notes:          r.Notes,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.Format(time.RFC3339),
	}
}

func NewRecordResponses(records []Record) []RecordResponse {
	result := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		result = append(result, NewRecordResponse(r))
	}
	return result
}

func NewScanResponse(res ScanResult) ScanResponse {
	resp := ScanResponse{
		Allowed: res.Allowed,
		Action:  string(res.Action),
		Reason:  res.Reason,
		Code:    string(res.Code),
	}
	if res.Record != nil {
		rec := NewRecordResponse(*res.Record)
		resp.Record = &rec
	}
	return resp
}

func NewSnapshotResponse(s Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Date:     s.Date.Format(DateLayout),
		Total:    s.Total,
		Present:  s.Present,
		Absent:   s.Absent,
		Late:     s.Late,
		HalfDay:  s.HalfDay,
		OnLeave:  s.OnLeave,
		Overtime: s.Overtime,
		Holiday:  s.Holiday,
		Weekend:  s.Weekend,
	}
}

func NewSummaryResponse(s Summary) SummaryResponse {
	return SummaryResponse{
		WorkerID:             s.WorkerID,
		StartDate:            s.Period.StartDate.Format(DateLayout),
		EndDate:              s.Period.EndDate.Format(DateLayout),
		PeriodType:           string(s.Period.Type),
		PresentDays:          s.PresentDays,
		AbsentDays:           s.AbsentDays,
		LateDays:             s.LateDays,
		HalfDays:             s.HalfDays,
		LeaveDays:            s.LeaveDays,
		HolidayDays:          s.HolidayDays,
		WeekendDays:          s.WeekendDays,
		TotalWorkingDays:     s.TotalWorkingDays,
		TotalHours:           s.TotalHours,
		OvertimeHours:        s.OvertimeHours,
		AttendancePercentage: s.AttendancePercentage,
	}
}

func NewMarkAllPresentResponse(r MarkAllPresentResult) MarkAllPresentResponse {
	return MarkAllPresentResponse{
		Date:       r.Date.Format(DateLayout),
		Created:    r.Created,
		Skipped:    r.Skipped,
		Ineligible: r.Ineligible,
	}
}
