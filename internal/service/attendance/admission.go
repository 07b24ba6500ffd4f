package attendance

import (
	"fmt"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/utils"
)

// CanScan decides whether a punch may be applied to the worker's record for the day.
// existing is nil when the worker has no record yet. Record rules are checked
// before the worker's status.
func CanScan(existing *attendance.Record, action attendance.Action, w worker.Worker) attendance.Decision {
	switch {
	case existing == nil:
		if action == attendance.ActionClockOut {
			return attendance.Deny(attendance.DenialNoClockIn, "no clock-in record found for today")
		}
	case existing.ClockIn == nil:
		return attendance.Deny(attendance.DenialAlreadyDeclared,
			fmt.Sprintf("attendance already recorded as %s for today", existing.Status))
	case existing.ClockOut == nil:
		if action == attendance.ActionClockIn {
			return attendance.Deny(attendance.DenialAlreadyClockedIn, "already clocked in today")
		}
	default:
		if action == attendance.ActionClockIn {
			return attendance.Deny(attendance.DenialAlreadyCompleted, "already completed attendance for today")
		}
		return attendance.Deny(attendance.DenialAlreadyClockedOut, "already clocked out today")
	}

	if !w.IsActive() {
		return attendance.Deny(attendance.DenialWorkerNotActive, fmt.Sprintf("worker is %s", w.Status))
	}

	return attendance.Allow()
}

// CheckGeofence denies punches taken farther than radiusMeters from the site.
// It allows when the radius is disabled or either side lacks coordinates.
func CheckGeofence(lat, lon *float64, site project.Project, radiusMeters float64) attendance.Decision {
	if radiusMeters <= 0 || lat == nil || lon == nil || !site.HasCoordinates() {
		return attendance.Allow()
	}
	if utils.WithinRadius(*lat, *lon, *site.Latitude, *site.Longitude, radiusMeters) {
		return attendance.Allow()
	}
	return attendance.Deny(attendance.DenialOutsideRadius,
		fmt.Sprintf("outside the allowed radius of site %s", site.Name))
}
