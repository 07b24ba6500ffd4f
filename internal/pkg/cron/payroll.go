package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
)

type PayrollJobs struct {
	payrollService payroll.Service
	clock          clock.Clock
	location       *time.Location
}

func NewPayrollJobs(payrollService payroll.Service, clk clock.Clock, location *time.Location) *PayrollJobs {
	if clk == nil {
		clk = clock.System()
	}
	if location == nil {
		location = time.UTC
	}
	return &PayrollJobs{
		payrollService: payrollService,
		clock:          clk,
		location:       location,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("mark_overdue_payments", interval, j.MarkOverduePayments)
}

// MarkOverduePayments flips pending payments whose due date has passed.
func (j *PayrollJobs) MarkOverduePayments(ctx context.Context) error {
	asOf := j.clock.Now().In(j.location)

	n, err := j.payrollService.MarkOverdue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("overdue sweep as of %s: %w", asOf.Format(attendance.DateLayout), err)
	}
	slog.Debug("Overdue sweep finished", "updated", n)
	return nil
}
