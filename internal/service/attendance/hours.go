package attendance

import (
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/shopspring/decimal"
)

// DefaultStandardHours is the length of a regular working day.
var DefaultStandardHours = decimal.NewFromInt(8)

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// ComputeHours returns clockOut - clockIn in hours, rounded half-up to 2 places.
// Every hour figure in the engine is derived through this function.
func ComputeHours(clockIn, clockOut time.Time) (decimal.Decimal, error) {
	if !clockOut.After(clockIn) {
		return decimal.Zero, attendance.ErrInvalidInterval
	}
	elapsed := decimal.NewFromInt(int64(clockOut.Sub(clockIn)))
	return elapsed.DivRound(nanosPerHour, 2), nil
}

// ComputeOvertime returns the hours beyond standardHours, never negative.
// A non-positive standardHours falls back to DefaultStandardHours.
func ComputeOvertime(totalHours, standardHours decimal.Decimal) decimal.Decimal {
	if !standardHours.IsPositive() {
		standardHours = DefaultStandardHours
	}
	return decimal.Max(decimal.Zero, totalHours.Sub(standardHours))
}
