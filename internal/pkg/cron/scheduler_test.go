package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/buildcrew/workforce-engine/internal/repository/memory"
	payrollService "github.com/buildcrew/workforce-engine/internal/service/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()

	var calls int32
	s.AddJob("count", time.Hour, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	s.AddJob("fail", time.Hour, func(ctx context.Context) error {
		return errors.New("boom")
	})
	s.AddJob("panic", time.Hour, func(ctx context.Context) error {
		panic("unexpected")
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler()

	ran := make(chan struct{}, 1)
	s.AddJob("tick", time.Hour, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	s.Start(context.Background())

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	assert.NotPanics(t, func() { NewScheduler().Stop() })
}

func TestPayrollJobs_MarkOverduePayments(t *testing.T) {
	ctx := context.Background()
	payments := memory.NewPaymentRepository()
	clk := clock.NewFixed(time.Date(2024, 4, 10, 6, 0, 0, 0, time.UTC))
	svc := payrollService.NewPayrollService(payments, memory.NewLedgerRepository(), memory.NewAttendanceRepository(), memory.NewWorkerRepository(), clk, payrollService.Config{})

	march := attendance.MonthPeriod(2024, time.March, time.UTC)
	due, err := payments.Save(ctx, payroll.PaymentRecord{
		WorkerID:      "W1",
		Period:        march,
		DueDate:       time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC),
		PaymentStatus: payroll.PaymentStatusPending,
	})
	require.NoError(t, err)
	notDue, err := payments.Save(ctx, payroll.PaymentRecord{
		WorkerID:      "W2",
		Period:        march,
		DueDate:       time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
		PaymentStatus: payroll.PaymentStatusPending,
	})
	require.NoError(t, err)

	s := NewScheduler()
	NewPayrollJobs(svc, clk, time.UTC).RegisterJobs(s, time.Hour)
	require.NoError(t, s.RunOnce(ctx))

	got, err := payments.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PaymentStatusOverdue, got.PaymentStatus)

	got, err = payments.GetByID(ctx, notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PaymentStatusPending, got.PaymentStatus)
}
