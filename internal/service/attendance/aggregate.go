package attendance

import (
	"sort"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DailySnapshot counts the statuses of day. Roster workers without a record
// that day are counted as absent.
func DailySnapshot(records []attendance.Record, day time.Time, roster []string) attendance.Snapshot {
	snap := attendance.Snapshot{Date: day}

	inRoster := make(map[string]bool, len(roster))
	for _, id := range roster {
		inRoster[id] = true
	}

	seen := make(map[string]bool)
	rosterSeen := 0
	dayKey := day.Format(attendance.DateLayout)

	for _, r := range records {
		if r.Date.Format(attendance.DateLayout) != dayKey || seen[r.WorkerID] {
			continue
		}
		seen[r.WorkerID] = true
		if inRoster[r.WorkerID] {
			rosterSeen++
		}

		switch r.Status {
		case attendance.StatusPresent:
			snap.Present++
		case attendance.StatusLate:
			snap.Present++
			snap.Late++
		case attendance.StatusHalfDay:
			snap.Present++
			snap.HalfDay++
		case attendance.StatusAbsent:
			snap.Absent++
		case attendance.StatusOnLeave:
			snap.OnLeave++
		case attendance.StatusHoliday:
			snap.Holiday++
		case attendance.StatusWeekend:
			snap.Weekend++
		}
		if r.OvertimeHours != nil && r.OvertimeHours.IsPositive() {
			snap.Overtime++
		}
	}

	snap.Absent += len(inRoster) - rosterSeen
	snap.Total = len(inRoster) + len(seen) - rosterSeen
	return snap
}

// PeriodSummary folds the worker's records inside period in date order.
// It does not modify records.
func PeriodSummary(records []attendance.Record, workerID string, period attendance.Period) attendance.Summary {
	summary := attendance.Summary{
		WorkerID:             workerID,
		Period:               period,
		TotalHours:           decimal.Zero,
		OvertimeHours:        decimal.Zero,
		AttendancePercentage: decimal.Zero,
	}

	var selected []attendance.Record
	for _, r := range records {
		if r.WorkerID == workerID && period.Contains(r.Date) {
			selected = append(selected, r)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date.Format(attendance.DateLayout) < selected[j].Date.Format(attendance.DateLayout)
	})

	for _, r := range selected {
		switch r.Status {
		case attendance.StatusPresent:
			summary.PresentDays++
		case attendance.StatusLate:
			summary.PresentDays++
			summary.LateDays++
		case attendance.StatusHalfDay:
			summary.HalfDays++
		case attendance.StatusAbsent:
			summary.AbsentDays++
		case attendance.StatusOnLeave:
			summary.LeaveDays++
		case attendance.StatusHoliday:
			summary.HolidayDays++
		case attendance.StatusWeekend:
			summary.WeekendDays++
		}
		if r.Status.IsWorkingDay() {
			summary.TotalWorkingDays++
		}
		if r.TotalHours != nil {
			summary.TotalHours = summary.TotalHours.Add(*r.TotalHours)
		}
		if r.OvertimeHours != nil {
			summary.OvertimeHours = summary.OvertimeHours.Add(*r.OvertimeHours)
		}
	}

	// A half day counts as half an attended day.
	if summary.TotalWorkingDays > 0 {
		attended := decimal.NewFromInt(int64(summary.PresentDays)).
			Add(decimal.NewFromInt(int64(summary.HalfDays)).Div(decimal.NewFromInt(2)))
		summary.AttendancePercentage = attended.
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(summary.TotalWorkingDays)), 2)
	}

	return summary
}

// VerifyRecords reports the first record set inconsistency: two records for
// one worker and day, or negative hours.
func VerifyRecords(op string, records []attendance.Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		key := r.DayKey()
		if _, dup := seen[key]; dup {
			return &attendance.InvariantViolation{Op: op, WorkerID: r.WorkerID, Date: r.Date, Detail: "duplicate record for worker and day"}
		}
		seen[key] = struct{}{}

		if (r.TotalHours != nil && r.TotalHours.IsNegative()) || (r.OvertimeHours != nil && r.OvertimeHours.IsNegative()) {
			return &attendance.InvariantViolation{Op: op, WorkerID: r.WorkerID, Date: r.Date, Detail: "negative hours"}
		}
	}
	return nil
}
