package attendance

import (
	"fmt"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Config holds the attendance policy of the organisation.
type Config struct {
	// Location defines the org-local calendar day.
	Location      *time.Location
	StandardHours decimal.Decimal
	// LateThreshold, ShiftStart and ShiftEnd are offsets from local midnight.
	LateThreshold time.Duration
	ShiftStart    time.Duration
	ShiftEnd      time.Duration
	// GeofenceRadius in meters. Zero disables the check.
	GeofenceRadius float64
}

func (c Config) withDefaults() Config {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if !c.StandardHours.IsPositive() {
		c.StandardHours = DefaultStandardHours
	}
	if c.ShiftStart == 0 && c.ShiftEnd == 0 {
		c.ShiftStart = 9 * time.Hour
		c.ShiftEnd = 17 * time.Hour
	}
	return c
}

// dayOf returns local midnight of the calendar day t falls on.
func dayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func atOffset(day time.Time, offset time.Duration) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).Add(offset)
}

func sinceMidnight(t time.Time, loc *time.Location) time.Duration {
	return t.In(loc).Sub(dayOf(t, loc))
}

// parsePunchTime reads a time of day on day, or an absolute RFC3339 instant.
func parsePunchTime(s string, day time.Time) (time.Time, bool) {
	if offset, ok := validator.IsValidClockTime(s); ok {
		return atOffset(day, offset), true
	}
	return validator.IsValidDateTime(s)
}

func applyHours(rec *attendance.Record, hours decimal.Decimal, standard decimal.Decimal) {
	rec.TotalHours = &hours
	rec.OvertimeHours = nil
	if ot := ComputeOvertime(hours, standard); ot.IsPositive() {
		rec.OvertimeHours = &ot
	}
}

// clockInRecord opens the day for w. Lateness is fixed at clock-in time.
func clockInRecord(w worker.Worker, day time.Time, entry attendance.Entry, projectID *string, cfg Config) attendance.Record {
	status := attendance.StatusPresent
	if cfg.LateThreshold > 0 && sinceMidnight(entry.Timestamp, cfg.Location) > cfg.LateThreshold {
		status = attendance.StatusLate
	}

	return attendance.Record{
		WorkerID:       w.ID,
		Date:           day,
		ClockIn:        &entry,
		Status:         status,
		ProjectID:      projectID,
		Department:     w.Department,
		EmploymentType: w.EmploymentType,
	}
}

// clockOutRecord closes an open day. The status set at clock-in is kept.
func clockOutRecord(rec attendance.Record, entry attendance.Entry, cfg Config) (attendance.Record, error) {
	hours, err := ComputeHours(rec.ClockIn.Timestamp, entry.Timestamp)
	if err != nil {
		return attendance.Record{}, validator.ValidationErrors{{
			Field:   "timestamp",
			Message: "clock-out must be after clock-in",
			Err:     attendance.ErrInvalidTimeRange,
		}}
	}

	rec.ClockOut = &entry
	applyHours(&rec, hours, cfg.StandardHours)
	return rec, nil
}

// patch carries the caller-supplied fields of a manual entry or an edit.
// Nil means "keep what the base record has".
type patch struct {
	Status      *attendance.Status
	ClockIn     *string
	ClockOut    *string
	LeaveType   *string
	HalfDayType *attendance.HalfDayType
	Notes       *string
	Actor       *string
	Location    *attendance.Location
}

// declare applies p on top of base and enforces the per-status requirements.
// requireClockOut is set for new declarations; edits may leave a day open.
func declare(base attendance.Record, p patch, requireClockOut bool, cfg Config) (attendance.Record, error) {
	var errs validator.ValidationErrors

	// Stored dates may come back in UTC; times of day are org-local.
	day := time.Date(base.Date.Year(), base.Date.Month(), base.Date.Day(), 0, 0, 0, 0, cfg.Location)

	status := base.Status
	if p.Status != nil {
		status = *p.Status
	}

	var inTime, outTime *time.Time
	if base.ClockIn != nil {
		t := base.ClockIn.Timestamp
		inTime = &t
	}
	if base.ClockOut != nil {
		t := base.ClockOut.Timestamp
		outTime = &t
	}
	if p.ClockIn != nil {
		if t, ok := parsePunchTime(*p.ClockIn, day); ok {
			inTime = &t
		} else {
			errs = append(errs, validator.ValidationError{Field: "clock_in", Message: "clock_in is not a valid time"})
		}
	}
	if p.ClockOut != nil {
		if t, ok := parsePunchTime(*p.ClockOut, day); ok {
			outTime = &t
		} else {
			errs = append(errs, validator.ValidationError{Field: "clock_out", Message: "clock_out is not a valid time"})
		}
	}

	if !status.AllowsTimes() {
		if p.ClockIn != nil || p.ClockOut != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "clock_in",
				Message: fmt.Sprintf("clock times must be empty for status %s", status),
			})
		}
		inTime, outTime = nil, nil
	}

	if status.RequiresTimes() {
		if inTime == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "clock_in",
				Message: fmt.Sprintf("clock_in is required for status %s", status),
				Err:     attendance.ErrInvalidTimeRange,
			})
		}
		if requireClockOut && outTime == nil {
			errs = append(errs, validator.ValidationError{
				Field:   "clock_out",
				Message: fmt.Sprintf("clock_out is required for status %s", status),
				Err:     attendance.ErrInvalidTimeRange,
			})
		}
	}
	if outTime != nil && inTime == nil && status.AllowsTimes() && !status.RequiresTimes() {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_in",
			Message: "clock_in is required when clock_out is given",
			Err:     attendance.ErrInvalidTimeRange,
		})
	}
	if inTime != nil && outTime != nil && !outTime.After(*inTime) {
		errs = append(errs, validator.ValidationError{
			Field:   "clock_out",
			Message: "clock_out must be after clock_in",
			Err:     attendance.ErrInvalidTimeRange,
		})
	}

	leaveType := base.LeaveType
	if p.LeaveType != nil {
		leaveType = p.LeaveType
	}
	if status == attendance.StatusOnLeave && (leaveType == nil || validator.IsEmpty(*leaveType)) {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type",
			Message: "leave_type is required for status on_leave",
			Err:     attendance.ErrMissingLeaveType,
		})
	}

	halfDayType := base.HalfDayType
	if p.HalfDayType != nil {
		halfDayType = p.HalfDayType
	}
	if status == attendance.StatusHalfDay && halfDayType == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "half_day_type",
			Message: "half_day_type is required for status half_day",
			Err:     attendance.ErrMissingHalfDayType,
		})
	}

	if len(errs) > 0 {
		return attendance.Record{}, errs
	}

	next := base
	next.Status = status
	next.ClockIn = keepOrReplace(base.ClockIn, inTime, p)
	next.ClockOut = keepOrReplace(base.ClockOut, outTime, p)
	next.TotalHours, next.OvertimeHours = nil, nil
	next.LeaveType, next.HalfDayType = nil, nil

	switch {
	case inTime != nil && outTime != nil:
		hours, err := ComputeHours(*inTime, *outTime)
		if err != nil {
			return attendance.Record{}, &attendance.InvariantViolation{
				Op: "declare", WorkerID: base.WorkerID, Date: base.Date, Detail: "negative hours after validation",
			}
		}
		applyHours(&next, hours, cfg.StandardHours)
	case status == attendance.StatusHalfDay:
		half := cfg.StandardHours.Div(decimal.NewFromInt(2)).Round(2)
		next.TotalHours = &half
	}

	switch status {
	case attendance.StatusOnLeave:
		next.LeaveType = leaveType
	case attendance.StatusHalfDay:
		next.HalfDayType = halfDayType
	}

	if p.Notes != nil {
		if validator.IsEmpty(*p.Notes) {
			next.Notes = nil
		} else {
			notes := *p.Notes
			next.Notes = &notes
		}
	}

	return next, nil
}

// keepOrReplace keeps the original punch when its instant is unchanged, so a
// repeated edit leaves scan metadata intact.
func keepOrReplace(current *attendance.Entry, at *time.Time, p patch) *attendance.Entry {
	if at == nil {
		return nil
	}
	if current != nil && current.Timestamp.Equal(*at) {
		return current
	}
	return &attendance.Entry{
		Timestamp:  *at,
		Method:     attendance.MethodManual,
		Location:   p.Location,
		VerifiedBy: p.Actor,
	}
}

// sameContent compares everything an edit can change.
func sameContent(a, b attendance.Record) bool {
	return a.WorkerID == b.WorkerID &&
		a.Date.Equal(b.Date) &&
		a.Status == b.Status &&
		sameEntry(a.ClockIn, b.ClockIn) &&
		sameEntry(a.ClockOut, b.ClockOut) &&
		sameDecimal(a.TotalHours, b.TotalHours) &&
		sameDecimal(a.OvertimeHours, b.OvertimeHours) &&
		sameString(a.LeaveType, b.LeaveType) &&
		sameHalfDay(a.HalfDayType, b.HalfDayType) &&
		sameString(a.ProjectID, b.ProjectID) &&
		a.Department == b.Department &&
		a.EmploymentType == b.EmploymentType &&
		sameString(a.Notes, b.Notes)
}

func sameEntry(a, b *attendance.Entry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Timestamp.Equal(b.Timestamp) &&
		a.Method == b.Method &&
		sameLocation(a.Location, b.Location) &&
		sameString(a.VerifiedBy, b.VerifiedBy) &&
		sameString(a.Notes, b.Notes)
}

func sameLocation(a, b *attendance.Location) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Site == b.Site && sameFloat(a.Latitude, b.Latitude) && sameFloat(a.Longitude, b.Longitude)
}

func sameDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameHalfDay(a, b *attendance.HalfDayType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
