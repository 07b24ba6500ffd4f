package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/handler/http/response"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	Scan(w http.ResponseWriter, r *http.Request)
	RecordManual(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	MarkAllPresent(w http.ResponseWriter, r *http.Request)
	Snapshot(w http.ResponseWriter, r *http.Request)
	Summary(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.Service
	clock             clock.Clock
	location          *time.Location
	keepalive         time.Duration
}

// Scan implements AttendanceHandler.
func (h *attendanceHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	var req attendance.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.Scan(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	// A denied scan is a normal outcome, reported in the body.
	if !result.Allowed {
		response.SuccessWithMessage(w, result.Reason, attendance.NewScanResponse(result))
		return
	}

	response.SuccessWithMessage(w, fmt.Sprintf("%s recorded", result.Action), attendance.NewScanResponse(result))
}

// RecordManual implements AttendanceHandler.
func (h *attendanceHandlerImpl) RecordManual(w http.ResponseWriter, r *http.Request) {
	var req attendance.ManualEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	record, err := h.attendanceService.RecordManualEntry(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance recorded", attendance.NewRecordResponse(record))
}

// Update implements AttendanceHandler.
func (h *attendanceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Attendance ID is required", nil)
		return
	}

	var req attendance.EditRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	record, err := h.attendanceService.EditRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance updated", attendance.NewRecordResponse(record))
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Attendance ID is required", nil)
		return
	}

	record, err := h.attendanceService.GetRecord(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.NewRecordResponse(record))
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := attendance.RecordFilter{}

	if workerID := query.Get("worker_id"); workerID != "" {
		filter.WorkerID = &workerID
	}
	if projectID := query.Get("project_id"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if date := query.Get("date"); date != "" {
		filter.Date = &date
	}
	if startDate := query.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := query.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}
	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}

	// Pagination
	filter.Page = 1
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			filter.Page = pageNum
		}
	}
	filter.Limit = 20
	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			filter.Limit = limitNum
		}
	}

	filter.SortBy = query.Get("sort_by")
	filter.SortOrder = query.Get("sort_order")

	records, total, err := h.attendanceService.ListRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, attendance.NewRecordResponses(records), response.NewMeta(filter.Page, filter.Limit, total))
}

// Delete implements AttendanceHandler.
func (h *attendanceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Attendance ID is required", nil)
		return
	}

	if err := h.attendanceService.DeleteRecord(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance deleted", nil)
}

// MarkAllPresent implements AttendanceHandler.
func (h *attendanceHandlerImpl) MarkAllPresent(w http.ResponseWriter, r *http.Request) {
	var req attendance.MarkAllPresentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.attendanceService.MarkAllPresent(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, fmt.Sprintf("%d workers marked present", result.Created), attendance.NewMarkAllPresentResponse(result))
}

// Snapshot implements AttendanceHandler.
func (h *attendanceHandlerImpl) Snapshot(w http.ResponseWriter, r *http.Request) {
	day := h.clock.Now().In(h.location)
	if date := r.URL.Query().Get("date"); date != "" {
		parsed, ok := validator.IsValidDate(date)
		if !ok {
			response.ValidationError(w, map[string]string{"date": "date must be in YYYY-MM-DD format"})
			return
		}
		day = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, h.location)
	}

	snapshot, err := h.attendanceService.DailySnapshot(r.Context(), day)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.NewSnapshotResponse(snapshot))
}

// Summary implements AttendanceHandler.
func (h *attendanceHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := attendance.SummaryRequest{
		WorkerID:  query.Get("worker_id"),
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
		Type:      query.Get("type"),
	}
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	summary, err := h.attendanceService.PeriodSummary(r.Context(), req.WorkerID, req.Period(h.location))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, attendance.NewSummaryResponse(summary))
}

// Stream pushes attendance changes to live dashboards over SSE.
func (h *attendanceHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.attendanceService.Subscribe(r.Context())
	defer cleanup()

	_ = response.WriteEvent(w, "connected", map[string]string{"status": "connected"})
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := response.WriteEvent(w, event.Event, event.Data); err != nil {
				slog.Warn("Failed to write stream event", "event", event.Event, "error", err)
				continue
			}
			flusher.Flush()

		case <-keepalive.C:
			_ = response.WriteEvent(w, "ping", map[string]int64{"timestamp": h.clock.Now().Unix()})
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func NewAttendanceHandler(attendanceService attendance.Service, clk clock.Clock, location *time.Location) AttendanceHandler {
	if clk == nil {
		clk = clock.System()
	}
	if location == nil {
		location = time.UTC
	}
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		clock:             clk,
		location:          location,
		keepalive:         30 * time.Second,
	}
}
