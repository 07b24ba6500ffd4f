package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.ParseInLocation(attendance.DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

// ===== ATTENDANCE REPOSITORY TESTS =====

func TestAttendanceRepository_Create_AssignsIdentity(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	rec, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusAbsent})

	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, rec.Version)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestAttendanceRepository_Create_RejectsSecondRecordForDay(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	_, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	_, err = repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusHoliday})
	assert.ErrorIs(t, err, attendance.ErrRecordExists)

	_, err = repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-02"), Status: attendance.StatusHoliday})
	assert.NoError(t, err)
}

func TestAttendanceRepository_Create_ConcurrentSameDay(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusAbsent})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestAttendanceRepository_Update_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	rec, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	first := rec
	first.Status = attendance.StatusHoliday
	updated, err := repo.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, attendance.StatusHoliday, updated.Status)

	stale := rec
	stale.Status = attendance.StatusWeekend
	_, err = repo.Update(ctx, stale)
	assert.ErrorIs(t, err, attendance.ErrVersionConflict)

	_, err = repo.Update(ctx, attendance.Record{ID: "missing"})
	assert.ErrorIs(t, err, attendance.ErrRecordNotFound)
}

func TestAttendanceRepository_GetByWorkerAndDate(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	none, err := repo.GetByWorkerAndDate(ctx, "W1", day("2024-03-01"))
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	found, err := repo.GetByWorkerAndDate(ctx, "W1", day("2024-03-01"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, attendance.StatusAbsent, found.Status)
}

func TestAttendanceRepository_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	in := &attendance.Entry{Timestamp: day("2024-03-01").Add(9 * time.Hour), Method: attendance.MethodQRScan}
	rec, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusPresent, ClockIn: in})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	got.ClockIn.Method = attendance.MethodManual

	again, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.MethodQRScan, again.ClockIn.Method)
}

func TestAttendanceRepository_ListByRange(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	for _, d := range []string{"2024-02-29", "2024-03-01", "2024-03-15", "2024-03-31", "2024-04-01"} {
		_, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day(d), Status: attendance.StatusPresent})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, attendance.Record{WorkerID: "W2", Date: day("2024-03-10"), Status: attendance.StatusPresent})
	require.NoError(t, err)

	all, err := repo.ListByRange(ctx, day("2024-03-01"), day("2024-03-31"), nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	w1, err := repo.ListByRange(ctx, day("2024-03-01"), day("2024-03-31"), []string{"W1"})
	require.NoError(t, err)
	require.Len(t, w1, 3)
	assert.Equal(t, "2024-03-01", w1[0].Date.Format(attendance.DateLayout))
	assert.Equal(t, "2024-03-31", w1[2].Date.Format(attendance.DateLayout))
}

func TestAttendanceRepository_List_FilterAndPaginate(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	for i := 1; i <= 5; i++ {
		d := day("2024-03-01").AddDate(0, 0, i-1)
		_, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: d, Status: attendance.StatusPresent})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, attendance.Record{WorkerID: "W2", Date: day("2024-03-01"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	filter := attendance.RecordFilter{WorkerID: strPtr("W1"), Page: 2, Limit: 2, SortBy: "date", SortOrder: "asc"}
	records, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-03", records[0].Date.Format(attendance.DateLayout))

	absent, total, err := repo.List(ctx, attendance.RecordFilter{Status: strPtr("absent"), Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "W2", absent[0].WorkerID)
}

func TestAttendanceRepository_Delete_FreesDay(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	rec, err := repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusAbsent})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	assert.ErrorIs(t, repo.Delete(ctx, rec.ID), attendance.ErrRecordNotFound)

	_, err = repo.Create(ctx, attendance.Record{WorkerID: "W1", Date: day("2024-03-01"), Status: attendance.StatusPresent})
	assert.NoError(t, err)
}

// ===== DIRECTORY TESTS =====

func TestWorkerRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkerRepository(
		worker.Worker{ID: "W2", Status: worker.StatusActive},
		worker.Worker{ID: "W1", Status: worker.StatusActive},
		worker.Worker{ID: "W3", Status: worker.StatusSuspended},
	)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "W1", active[0].ID)
	assert.Equal(t, "W2", active[1].ID)

	_, err = repo.GetByID(ctx, "W9")
	assert.ErrorIs(t, err, worker.ErrWorkerNotFound)
}

// ===== PAYMENT REPOSITORY TESTS =====

func march() attendance.Period {
	return attendance.MonthPeriod(2024, time.March, time.UTC)
}

func TestPaymentRepository_Save_ReplacesPending(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()

	first, err := repo.Save(ctx, payroll.PaymentRecord{WorkerID: "W1", Period: march(), NetPay: decimal.NewFromInt(100), PaymentStatus: payroll.PaymentStatusPending})
	require.NoError(t, err)

	second, err := repo.Save(ctx, payroll.PaymentRecord{WorkerID: "W1", Period: march(), NetPay: decimal.NewFromInt(200), PaymentStatus: payroll.PaymentStatusPending})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	stored, err := repo.GetByWorkerPeriod(ctx, "W1", march())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, decimal.NewFromInt(200).Equal(stored.NetPay))
}

func TestPaymentRepository_Save_RefusesSettled(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()

	rec, err := repo.Save(ctx, payroll.PaymentRecord{WorkerID: "W1", Period: march(), PaymentStatus: payroll.PaymentStatusPending})
	require.NoError(t, err)

	rec.PaymentStatus = payroll.PaymentStatusPaid
	_, err = repo.Update(ctx, rec)
	require.NoError(t, err)

	_, err = repo.Save(ctx, payroll.PaymentRecord{WorkerID: "W1", Period: march(), PaymentStatus: payroll.PaymentStatusPending})
	assert.ErrorIs(t, err, payroll.ErrPaymentSettled)
}

func TestPaymentRepository_MarkOverdue(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()

	_, err := repo.Save(ctx, payroll.PaymentRecord{WorkerID: "W1", Period: march(), DueDate: day("2024-04-07"), PaymentStatus: payroll.PaymentStatusPending})
	require.NoError(t, err)
	_, err = repo.Save(ctx, payroll.PaymentRecord{WorkerID: "W2", Period: march(), DueDate: day("2024-04-20"), PaymentStatus: payroll.PaymentStatusPending})
	require.NoError(t, err)

	n, err := repo.MarkOverdue(ctx, day("2024-04-08"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.MarkOverdue(ctx, day("2024-04-08"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	overdue, total, err := repo.List(ctx, payroll.PaymentFilter{Status: strPtr("overdue"), Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "W1", overdue[0].WorkerID)
}

// ===== LEDGER TESTS =====

func TestLedgerRepository_GetOutstanding(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()

	entries := []payroll.LedgerEntry{
		{WorkerID: "W1", Kind: payroll.LedgerAdvance, Label: "advance", Amount: decimal.NewFromInt(500), EntryDate: day("2024-03-05")},
		{WorkerID: "W1", Kind: payroll.LedgerAdvance, Label: "advance", Amount: decimal.NewFromInt(250), EntryDate: day("2024-03-20")},
		{WorkerID: "W1", Kind: payroll.LedgerDeduction, Label: "tools", Amount: decimal.NewFromInt(120), EntryDate: day("2024-03-10")},
		{WorkerID: "W1", Kind: payroll.LedgerAdvance, Label: "advance", Amount: decimal.NewFromInt(999), EntryDate: day("2024-04-01")},
		{WorkerID: "W2", Kind: payroll.LedgerAdvance, Label: "advance", Amount: decimal.NewFromInt(50), EntryDate: day("2024-03-05")},
	}
	for _, e := range entries {
		_, err := repo.AddEntry(ctx, e)
		require.NoError(t, err)
	}

	out, err := repo.GetOutstanding(ctx, "W1", march())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(750).Equal(out.Advances))
	assert.True(t, decimal.NewFromInt(120).Equal(out.Deductions["tools"]))
}
