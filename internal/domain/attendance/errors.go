package attendance

import "errors"

// Attendance domain errors
var (
	// Validation causes, carried inside validator.ValidationErrors
	ErrInvalidTimeRange   = errors.New("clock-out must be after clock-in")
	ErrUnknownWorker      = errors.New("unknown worker")
	ErrInvalidPayload     = errors.New("unreadable scan payload")
	ErrMissingLeaveType   = errors.New("leave type is required for on_leave")
	ErrMissingHalfDayType = errors.New("half-day type is required for half_day")

	// Time arithmetic
	ErrInvalidInterval = errors.New("interval end must be after its start")

	// General errors
	ErrRecordNotFound  = errors.New("attendance record not found")
	ErrRecordExists    = errors.New("attendance already recorded for this worker and day")
	ErrVersionConflict = errors.New("attendance record was modified concurrently")
	ErrInvalidPeriod   = errors.New("invalid attendance period")
)
