package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/payroll"
	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/fixtures"
	"github.com/buildcrew/workforce-engine/internal/handler/http/response"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/buildcrew/workforce-engine/internal/pkg/sse"
	"github.com/buildcrew/workforce-engine/internal/repository/memory"
	attendanceService "github.com/buildcrew/workforce-engine/internal/service/attendance"
	payrollService "github.com/buildcrew/workforce-engine/internal/service/payroll"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
	Meta    *response.Meta        `json:"meta"`
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	clk := clock.NewFixed(time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC))
	lat, lon := 12.9716, 77.5946

	attendanceRepo := memory.NewAttendanceRepository()
	workers := memory.NewWorkerRepository(
		worker.Worker{ID: "W1", Name: "Asha", Status: worker.StatusActive, Wage: &worker.WageConfig{
			Type: worker.WageTypeDaily, DailyRate: decimal.NewFromInt(500), OvertimeEnabled: true,
		}},
		worker.Worker{ID: "W2", Name: "Ravi", Status: worker.StatusActive},
	)
	projects := memory.NewProjectRepository(project.Project{ID: "P1", Name: "Tower A", Latitude: &lat, Longitude: &lon})

	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, workers, projects, clk, sse.NewHub(16), attendanceService.Config{
		Location:       time.UTC,
		StandardHours:  decimal.NewFromInt(8),
		LateThreshold:  9*time.Hour + 15*time.Minute,
		ShiftStart:     9 * time.Hour,
		ShiftEnd:       17 * time.Hour,
		GeofenceRadius: 300,
	})
	payrollSvc := payrollService.NewPayrollService(memory.NewPaymentRepository(), memory.NewLedgerRepository(), attendanceRepo, workers, clk, payrollService.Config{
		Location: time.UTC,
		Settings: fixtures.DefaultPayrollSettings(),
	})

	return NewRouter(
		RouterOptions{Env: "test", Version: "test"},
		NewAttendanceHandler(attendanceSvc, clk, time.UTC),
		NewPayrollHandler(payrollSvc, clk, time.UTC),
	)
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func manualEntry(workerID, date string) map[string]interface{} {
	return map[string]interface{}{
		"worker_id": workerID,
		"date":      date,
		"status":    "present",
		"clock_in":  "08:30",
		"clock_out": "17:45",
	}
}

func TestAttendanceHandler_Scan(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/attendance/scan", map[string]interface{}{
		"worker_id": "W1",
		"action":    "clock_in",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var scan attendance.ScanResponse
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.True(t, scan.Allowed)
	require.NotNil(t, scan.Record)
	assert.Equal(t, "present", scan.Record.Status)

	// A second clock-in is a denial, not an error.
	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/attendance/scan", map[string]interface{}{
		"worker_id": "W1",
		"action":    "clock_in",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.False(t, scan.Allowed)
	assert.Equal(t, string(attendance.DenialAlreadyClockedIn), scan.Code)
	assert.Contains(t, strings.ToLower(env.Message), "already clocked in")
}

func TestAttendanceHandler_Scan_InvalidRequests(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/scan", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec2, env := doRequest(t, router, http.MethodPost, "/api/v1/attendance/scan", map[string]interface{}{
		"worker_id": "W1",
		"action":    "lunch_break",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec2.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "action")

	rec3, env := doRequest(t, router, http.MethodPost, "/api/v1/attendance/scan", map[string]interface{}{
		"worker_id": "W404",
		"action":    "clock_in",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec3.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAttendanceHandler_ManualEntryLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/attendance/manual", manualEntry("W1", "2024-03-04"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created attendance.RecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.TotalHours)
	assert.True(t, decimal.RequireFromString("9.25").Equal(*created.TotalHours))

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/attendance/manual", manualEntry("W1", "2024-03-04"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/attendance/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched attendance.RecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	rec, env = doRequest(t, router, http.MethodPut, "/api/v1/attendance/"+created.ID, map[string]interface{}{
		"status":     "on_leave",
		"leave_type": "sick",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited attendance.RecordResponse
	require.NoError(t, json.Unmarshal(env.Data, &edited))
	assert.Equal(t, "on_leave", edited.Status)
	assert.Nil(t, edited.ClockIn)
	assert.Equal(t, 2, edited.Version)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/attendance/?worker_id=W1&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)
	assert.Equal(t, 1, env.Meta.TotalPages)

	rec, _ = doRequest(t, router, http.MethodDelete, "/api/v1/attendance/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/attendance/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAttendanceHandler_SnapshotAndSummary(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/attendance/manual", manualEntry("W1", "2024-03-04"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/attendance/snapshot?date=2024-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot attendance.SnapshotResponse
	require.NoError(t, json.Unmarshal(env.Data, &snapshot))
	assert.Equal(t, 2, snapshot.Total)
	assert.Equal(t, 1, snapshot.Present)
	assert.Equal(t, 1, snapshot.Absent, "W2 has no record")
	assert.Equal(t, 1, snapshot.Overtime)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/attendance/snapshot?date=04-03-2024", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/attendance/summary?worker_id=W1&start_date=2024-03-01&end_date=2024-03-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary attendance.SummaryResponse
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.PresentDays)
	assert.True(t, decimal.NewFromInt(100).Equal(summary.AttendancePercentage))

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/attendance/summary?worker_id=W1&start_date=2024-03-31&end_date=2024-03-01", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAttendanceHandler_MarkAllPresent(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/attendance/mark-all-present", map[string]interface{}{"date": "2024-03-05"})
	require.Equal(t, http.StatusOK, rec.Code)
	var result attendance.MarkAllPresentResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 2, result.Created)

	_, env = doRequest(t, router, http.MethodPost, "/api/v1/attendance/mark-all-present", map[string]interface{}{"date": "2024-03-05"})
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Skipped)
}

func TestPayrollHandler_RunAndPay(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/attendance/manual", manualEntry("W1", "2024-03-04"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/payroll/run", map[string]interface{}{
		"period_month": 3,
		"period_year":  2024,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var batch payroll.BatchResponse
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	require.Len(t, batch.Succeeded, 1)
	require.Len(t, batch.Failed, 1)
	assert.Equal(t, "W2", batch.Failed[0].WorkerID)

	payment := batch.Succeeded[0]
	assert.True(t, decimal.RequireFromString("617.19").Equal(payment.GrossPay), "gross %s", payment.GrossPay)

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/payroll/payments/"+payment.ID+"/pay", map[string]interface{}{"amount": "1000"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "amount")

	rec, env = doRequest(t, router, http.MethodPost, "/api/v1/payroll/payments/"+payment.ID+"/pay", map[string]interface{}{"amount": "617.19"})
	require.Equal(t, http.StatusOK, rec.Code)
	var paid payroll.PaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, "paid", paid.PaymentStatus)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/payroll/payments/"+payment.ID+"/pay", map[string]interface{}{"amount": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/payroll/run", map[string]interface{}{
		"period_month": 3,
		"period_year":  2024,
		"worker_ids":   []string{"W1"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, router, http.MethodGet, "/api/v1/payroll/payments?status=paid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.TotalItems)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/payroll/payments/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayrollHandler_InvalidPeriodAndOverdue(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/payroll/run", map[string]interface{}{"period_month": 13, "period_year": 2024})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/payroll/payments/mark-overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overdue payroll.MarkOverdueResponse
	require.NoError(t, json.Unmarshal(env.Data, &overdue))
	assert.Equal(t, "2024-03-04", overdue.AsOf)
	assert.Equal(t, 0, overdue.Updated)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/payroll/payments/mark-overdue", map[string]interface{}{"as_of": "tomorrow"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/timesheets", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestAttendanceHandler_Stream(t *testing.T) {
	server := httptest.NewServer(newTestRouter(t))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/attendance/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
		close(events)
	}()

	next := func() string {
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for stream event")
			return ""
		}
	}

	require.Equal(t, "connected", next())

	body, err := json.Marshal(manualEntry("W1", "2024-03-04"))
	require.NoError(t, err)
	post, err := http.Post(server.URL+"/api/v1/attendance/manual", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	assert.Equal(t, attendanceService.EventRecordCreated, next())
}
