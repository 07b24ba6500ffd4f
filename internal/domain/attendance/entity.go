package attendance

import (
	"fmt"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of attendance days.
const DateLayout = "2006-01-02"

type Method string

const (
	MethodQRScan    Method = "qr_scan"
	MethodManual    Method = "manual"
	MethodBiometric Method = "biometric"
	MethodMobileApp Method = "mobile_app"
	MethodImported  Method = "imported"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodQRScan, MethodManual, MethodBiometric, MethodMobileApp, MethodImported:
		return true
	}
	return false
}

type Location struct {
	Site      string
	Latitude  *float64
	Longitude *float64
}

// Entry is a single punch. It is never mutated; edits replace it.
type Entry struct {
	Timestamp  time.Time
	Method     Method
	Location   *Location
	VerifiedBy *string
	Notes      *string
}

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
	StatusOnLeave Status = "on_leave"
	StatusHoliday Status = "holiday"
	StatusWeekend Status = "weekend"
)

var Statuses = []string{
	string(StatusPresent), string(StatusAbsent), string(StatusLate), string(StatusHalfDay),
	string(StatusOnLeave), string(StatusHoliday), string(StatusWeekend),
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusOnLeave, StatusHoliday, StatusWeekend:
		return true
	}
	return false
}

// RequiresTimes reports whether a declared record of this status must carry punches.
func (s Status) RequiresTimes() bool {
	return s == StatusPresent || s == StatusLate
}

// AllowsTimes reports whether a record of this status may carry punches at all.
func (s Status) AllowsTimes() bool {
	return s == StatusPresent || s == StatusLate || s == StatusHalfDay
}

// IsWorkingDay reports whether the status counts towards the working days of a period.
func (s Status) IsWorkingDay() bool {
	return s != StatusHoliday && s != StatusWeekend
}

type HalfDayType string

const (
	HalfDayFirst  HalfDayType = "first_half"
	HalfDaySecond HalfDayType = "second_half"
)

func (h HalfDayType) IsValid() bool {
	return h == HalfDayFirst || h == HalfDaySecond
}

type Action string

const (
	ActionClockIn  Action = "clock_in"
	ActionClockOut Action = "clock_out"
)

func (a Action) IsValid() bool {
	return a == ActionClockIn || a == ActionClockOut
}

// Record is the single attendance row of one worker for one org-local day.
type Record struct {
	ID             string
	WorkerID       string
	Date           time.Time
	ClockIn        *Entry
	ClockOut       *Entry
	Status         Status
	TotalHours     *decimal.Decimal
	OvertimeHours  *decimal.Decimal
	LeaveType      *string
	HalfDayType    *HalfDayType
	ProjectID      *string
	Department     string
	EmploymentType worker.EmploymentType
	Notes          *string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DayKey is the worker/day identity the uniqueness invariant is enforced on.
func (r Record) DayKey() string {
	return DayKey(r.WorkerID, r.Date)
}

func DayKey(workerID string, date time.Time) string {
	return workerID + "|" + date.Format(DateLayout)
}

type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
	PeriodCustom  PeriodType = "custom"
)

// Period is an inclusive range of days.
type Period struct {
	StartDate time.Time
	EndDate   time.Time
	Type      PeriodType
}

func (p Period) Validate() error {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return ErrInvalidPeriod
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidPeriod, p.EndDate.Format(DateLayout), p.StartDate.Format(DateLayout))
	}
	return nil
}

// Contains compares calendar days, so the location of day does not matter.
func (p Period) Contains(day time.Time) bool {
	d := day.Format(DateLayout)
	return d >= p.StartDate.Format(DateLayout) && d <= p.EndDate.Format(DateLayout)
}

func MonthPeriod(year int, month time.Month, loc *time.Location) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Period{
		StartDate: start,
		EndDate:   start.AddDate(0, 1, -1),
		Type:      PeriodMonthly,
	}
}

// WeekPeriod returns the Monday to Sunday week containing day.
func WeekPeriod(day time.Time) Period {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return Period{
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 6),
		Type:      PeriodWeekly,
	}
}

type Summary struct {
	WorkerID             string
	Period               Period
	PresentDays          int
	AbsentDays           int
	LateDays             int
	HalfDays             int
	LeaveDays            int
	HolidayDays          int
	WeekendDays          int
	TotalWorkingDays     int
	TotalHours           decimal.Decimal
	OvertimeHours        decimal.Decimal
	AttendancePercentage decimal.Decimal
}

type Snapshot struct {
	Date     time.Time
	Total    int
	Present  int
	Absent   int
	Late     int
	HalfDay  int
	OnLeave  int
	Overtime int
	Holiday  int
	Weekend  int
}

type DenialCode string

const (
	DenialNoClockIn         DenialCode = "no_clock_in"
	DenialAlreadyClockedIn  DenialCode = "already_clocked_in"
	DenialAlreadyCompleted  DenialCode = "already_completed"
	DenialAlreadyClockedOut DenialCode = "already_clocked_out"
	DenialAlreadyDeclared   DenialCode = "already_declared"
	DenialWorkerNotActive   DenialCode = "worker_not_active"
	DenialOutsideRadius     DenialCode = "outside_radius"
)

// Decision is the outcome of scan admission. A denial is data, not an error.
type Decision struct {
	Allowed bool
	Reason  string
	Code    DenialCode
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(code DenialCode, reason string) Decision {
	return Decision{Code: code, Reason: reason}
}

type ScanResult struct {
	Decision
	Action Action
	Record *Record
}

type MarkAllPresentResult struct {
	Date       time.Time
	Created    int
	Skipped    int
	Ineligible int
}

// InvariantViolation signals state that correct transitions can never produce.
type InvariantViolation struct {
	Op       string
	WorkerID string
	Date     time.Time
	Detail   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s for worker %s on %s: %s",
		e.Op, e.WorkerID, e.Date.Format(DateLayout), e.Detail)
}
