package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var violation *attendance.InvariantViolation
	if errors.As(err, &violation) {
		slog.Error("Invariant violation", "op", violation.Op, "worker_id", violation.WorkerID, "detail", violation.Detail)
		InternalServerError(w, "Stored attendance data is inconsistent")
		return
	}

	switch {
	// Attendance domain errors
	case errors.Is(err, attendance.ErrRecordNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrRecordExists):
		Conflict(w, "Attendance already recorded for this worker and day")
	case errors.Is(err, attendance.ErrVersionConflict):
		Conflict(w, "Attendance record was modified concurrently, reload and retry")
	case errors.Is(err, attendance.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)

	// Worker directory errors
	case errors.Is(err, worker.ErrWorkerNotFound):
		NotFound(w, "Worker not found")

	// Payroll domain errors
	case errors.Is(err, payroll.ErrPaymentNotFound):
		NotFound(w, "Payment record not found")
	case errors.Is(err, payroll.ErrPaymentSettled):
		Conflict(w, "Payment for this period is already settled")
	case errors.Is(err, payroll.ErrPaymentAlreadyPaid):
		Conflict(w, "Payment record already paid")
	case errors.Is(err, payroll.ErrInvalidPeriod):
		BadRequest(w, err.Error(), nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
