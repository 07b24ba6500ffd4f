package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/clock"
	"github.com/buildcrew/workforce-engine/internal/pkg/keylock"
	"github.com/buildcrew/workforce-engine/internal/pkg/sse"
	"github.com/buildcrew/workforce-engine/internal/pkg/validator"
)

// Topic is the hub topic attendance changes are published on.
const Topic = "attendance"

const (
	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"
	EventScanDenied    = "scan.denied"
)

type AttendanceServiceImpl struct {
	attendanceRepo attendance.Repository
	workerRepo     worker.Repository
	projectRepo    project.Repository
	clock          clock.Clock
	hub            *sse.Hub
	locks          *keylock.Locker
	cfg            Config
}

// Scan implements attendance.Service.
func (s *AttendanceServiceImpl) Scan(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResult{}, err
	}

	workerID, projectID := req.WorkerID, req.ProjectID
	if req.Payload != "" {
		payload, err := ParseQRPayload(req.Payload)
		if err != nil {
			return attendance.ScanResult{}, err
		}
		workerID = payload.WorkerID
		if projectID == nil && payload.ProjectID != "" {
			projectID = &payload.ProjectID
		}
	}

	w, err := s.getWorker(ctx, workerID)
	if err != nil {
		return attendance.ScanResult{}, err
	}
	if projectID == nil {
		projectID = w.ProjectID
	}

	at := s.clock.Now()
	if req.Timestamp != nil {
		at, _ = validator.IsValidDateTime(*req.Timestamp)
	}
	day := dayOf(at, s.cfg.Location)
	action := attendance.Action(req.Action)

	unlock := s.locks.Lock(attendance.DayKey(w.ID, day))
	defer unlock()

	existing, err := s.attendanceRepo.GetByWorkerAndDate(ctx, w.ID, day)
	if err != nil {
		return attendance.ScanResult{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	decision := CanScan(existing, action, w)
	if !decision.Allowed {
		return s.denied(w.ID, day, action, decision), nil
	}

	if existing != nil && existing.ProjectID != nil {
		projectID = existing.ProjectID
	}

	var site *project.Project
	if projectID != nil {
		p, err := s.projectRepo.GetByID(ctx, *projectID)
		if err != nil {
			if errors.Is(err, project.ErrProjectNotFound) {
				return attendance.ScanResult{}, validator.ValidationErrors{{
					Field:   "project_id",
					Message: fmt.Sprintf("project %s not found", *projectID),
				}}
			}
			return attendance.ScanResult{}, fmt.Errorf("failed to get project: %w", err)
		}
		site = &p

		decision = CheckGeofence(req.Latitude, req.Longitude, p, s.cfg.GeofenceRadius)
		if !decision.Allowed {
			return s.denied(w.ID, day, action, decision), nil
		}
	}

	entry := attendance.Entry{
		Timestamp:  at,
		Method:     req.ScanMethod(),
		VerifiedBy: req.VerifiedBy,
		Notes:      req.Notes,
	}
	if site != nil || req.Latitude != nil {
		entry.Location = &attendance.Location{Latitude: req.Latitude, Longitude: req.Longitude}
		if site != nil {
			entry.Location.Site = site.Name
		}
	}

	var saved attendance.Record
	switch action {
	case attendance.ActionClockIn:
		saved, err = s.attendanceRepo.Create(ctx, clockInRecord(w, day, entry, projectID, s.cfg))
		if errors.Is(err, attendance.ErrRecordExists) {
			return s.denied(w.ID, day, action,
				attendance.Deny(attendance.DenialAlreadyClockedIn, "already clocked in today")), nil
		}
		if err != nil {
			return attendance.ScanResult{}, fmt.Errorf("failed to create attendance record: %w", err)
		}
		s.publish(EventRecordCreated, saved)

	case attendance.ActionClockOut:
		next, err := clockOutRecord(*existing, entry, s.cfg)
		if err != nil {
			return attendance.ScanResult{}, err
		}
		saved, err = s.attendanceRepo.Update(ctx, next)
		if err != nil {
			return attendance.ScanResult{}, fmt.Errorf("failed to update attendance record: %w", err)
		}
		s.publish(EventRecordUpdated, saved)
	}

	return attendance.ScanResult{Decision: attendance.Allow(), Action: action, Record: &saved}, nil
}

func (s *AttendanceServiceImpl) denied(workerID string, day time.Time, action attendance.Action, d attendance.Decision) attendance.ScanResult {
	slog.Info("Scan denied", "worker_id", workerID, "date", day.Format(attendance.DateLayout),
		"action", action, "code", d.Code, "reason", d.Reason)

	result := attendance.ScanResult{Decision: d, Action: action}
	s.hub.Publish(sse.Event{
		Topic: Topic,
		Event: EventScanDenied,
		Data:  attendance.NewScanResponse(result),
	})
	return result
}

// RecordManualEntry implements attendance.Service.
func (s *AttendanceServiceImpl) RecordManualEntry(ctx context.Context, req attendance.ManualEntryRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}

	w, err := s.getWorker(ctx, req.WorkerID)
	if err != nil {
		return attendance.Record{}, err
	}

	day, _ := time.ParseInLocation(attendance.DateLayout, req.Date, s.cfg.Location)
	projectID := req.ProjectID
	if projectID == nil {
		projectID = w.ProjectID
	}

	status := attendance.Status(req.Status)
	p := patch{
		Status:    &status,
		ClockIn:   req.ClockIn,
		ClockOut:  req.ClockOut,
		LeaveType: req.LeaveType,
		Notes:     req.Notes,
		Actor:     req.RecordedBy,
	}
	if req.HalfDayType != nil {
		h := attendance.HalfDayType(*req.HalfDayType)
		p.HalfDayType = &h
	}
	p.Location = punchLocation(req.Latitude, req.Longitude)

	base := attendance.Record{
		WorkerID:       w.ID,
		Date:           day,
		ProjectID:      projectID,
		Department:     w.Department,
		EmploymentType: w.EmploymentType,
	}
	rec, err := declare(base, p, true, s.cfg)
	if err != nil {
		return attendance.Record{}, err
	}

	unlock := s.locks.Lock(rec.DayKey())
	defer unlock()

	saved, err := s.attendanceRepo.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordExists) {
			return attendance.Record{}, attendance.ErrRecordExists
		}
		return attendance.Record{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	s.publish(EventRecordCreated, saved)
	return saved, nil
}

func punchLocation(lat, lon *float64) *attendance.Location {
	if lat == nil || lon == nil {
		return nil
	}
	return &attendance.Location{Latitude: lat, Longitude: lon}
}

// EditRecord implements attendance.Service.
func (s *AttendanceServiceImpl) EditRecord(ctx context.Context, req attendance.EditRecordRequest) (attendance.Record, error) {
	if err := req.Validate(); err != nil {
		return attendance.Record{}, err
	}

	found, err := s.attendanceRepo.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.Record{}, err
	}

	unlock := s.locks.Lock(found.DayKey())
	defer unlock()

	// Re-read under the lock so the edit applies to the latest version.
	current, err := s.attendanceRepo.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.Record{}, err
	}

	p := patch{
		ClockIn:   req.ClockIn,
		ClockOut:  req.ClockOut,
		LeaveType: req.LeaveType,
		Notes:     req.Notes,
		Actor:     req.EditedBy,
	}
	if req.Status != nil {
		st := attendance.Status(*req.Status)
		p.Status = &st
	}
	if req.HalfDayType != nil {
		h := attendance.HalfDayType(*req.HalfDayType)
		p.HalfDayType = &h
	}
	p.Location = punchLocation(req.Latitude, req.Longitude)

	// Only a scan-opened day that keeps its status may stay open.
	stillOpen := current.ClockIn != nil && current.ClockOut == nil &&
		(p.Status == nil || *p.Status == current.Status)
	next, err := declare(current, p, !stillOpen, s.cfg)
	if err != nil {
		return attendance.Record{}, err
	}
	if sameContent(current, next) {
		return current, nil
	}

	saved, err := s.attendanceRepo.Update(ctx, next)
	if err != nil {
		if errors.Is(err, attendance.ErrVersionConflict) {
			return attendance.Record{}, attendance.ErrVersionConflict
		}
		return attendance.Record{}, fmt.Errorf("failed to update attendance record: %w", err)
	}

	s.publish(EventRecordUpdated, saved)
	return saved, nil
}

// MarkAllPresent implements attendance.Service.
func (s *AttendanceServiceImpl) MarkAllPresent(ctx context.Context, req attendance.MarkAllPresentRequest) (attendance.MarkAllPresentResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.MarkAllPresentResult{}, err
	}

	day, _ := time.ParseInLocation(attendance.DateLayout, req.Date, s.cfg.Location)
	result := attendance.MarkAllPresentResult{Date: day}

	var roster []worker.Worker
	if len(req.WorkerIDs) == 0 {
		active, err := s.workerRepo.ListActive(ctx)
		if err != nil {
			return attendance.MarkAllPresentResult{}, fmt.Errorf("failed to list active workers: %w", err)
		}
		roster = active
	} else {
		for _, id := range req.WorkerIDs {
			w, err := s.workerRepo.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, worker.ErrWorkerNotFound) {
					result.Ineligible++
					continue
				}
				return attendance.MarkAllPresentResult{}, fmt.Errorf("failed to get worker %s: %w", id, err)
			}
			if !w.IsActive() {
				result.Ineligible++
				continue
			}
			roster = append(roster, w)
		}
	}

	clockIn := atOffset(day, s.cfg.ShiftStart).Format(time.RFC3339)
	clockOut := atOffset(day, s.cfg.ShiftEnd).Format(time.RFC3339)
	status := attendance.StatusPresent

	for _, w := range roster {
		created, err := s.markPresent(ctx, w, day, patch{
			Status:   &status,
			ClockIn:  &clockIn,
			ClockOut: &clockOut,
			Actor:    req.RecordedBy,
		})
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	slog.Info("Marked workers present", "date", req.Date,
		"created", result.Created, "skipped", result.Skipped, "ineligible", result.Ineligible)

	return result, nil
}

func (s *AttendanceServiceImpl) markPresent(ctx context.Context, w worker.Worker, day time.Time, p patch) (bool, error) {
	unlock := s.locks.Lock(attendance.DayKey(w.ID, day))
	defer unlock()

	existing, err := s.attendanceRepo.GetByWorkerAndDate(ctx, w.ID, day)
	if err != nil {
		return false, fmt.Errorf("failed to get attendance record: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	rec, err := declare(attendance.Record{
		WorkerID:       w.ID,
		Date:           day,
		ProjectID:      w.ProjectID,
		Department:     w.Department,
		EmploymentType: w.EmploymentType,
	}, p, true, s.cfg)
	if err != nil {
		return false, err
	}

	saved, err := s.attendanceRepo.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordExists) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create attendance record: %w", err)
	}

	s.publish(EventRecordCreated, saved)
	return true, nil
}

// GetRecord implements attendance.Service.
func (s *AttendanceServiceImpl) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	return s.attendanceRepo.GetByID(ctx, id)
}

// ListRecords implements attendance.Service.
func (s *AttendanceServiceImpl) ListRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	records, total, err := s.attendanceRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return records, total, nil
}

// DeleteRecord implements attendance.Service.
func (s *AttendanceServiceImpl) DeleteRecord(ctx context.Context, id string) error {
	rec, err := s.attendanceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(rec.DayKey())
	defer unlock()

	if err := s.attendanceRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return attendance.ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}

	s.publish(EventRecordDeleted, rec)
	return nil
}

// DailySnapshot implements attendance.Service.
func (s *AttendanceServiceImpl) DailySnapshot(ctx context.Context, day time.Time) (attendance.Snapshot, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.cfg.Location)

	records, err := s.attendanceRepo.ListByDate(ctx, day)
	if err != nil {
		return attendance.Snapshot{}, fmt.Errorf("failed to list attendance records: %w", err)
	}
	if err := VerifyRecords("daily_snapshot", records); err != nil {
		slog.Error("Attendance records are inconsistent", "error", err)
		return attendance.Snapshot{}, err
	}

	active, err := s.workerRepo.ListActive(ctx)
	if err != nil {
		return attendance.Snapshot{}, fmt.Errorf("failed to list active workers: %w", err)
	}
	roster := make([]string, 0, len(active))
	for _, w := range active {
		roster = append(roster, w.ID)
	}

	return DailySnapshot(records, day, roster), nil
}

// PeriodSummary implements attendance.Service.
func (s *AttendanceServiceImpl) PeriodSummary(ctx context.Context, workerID string, period attendance.Period) (attendance.Summary, error) {
	if err := period.Validate(); err != nil {
		return attendance.Summary{}, err
	}
	if _, err := s.getWorker(ctx, workerID); err != nil {
		return attendance.Summary{}, err
	}

	records, err := s.attendanceRepo.ListByRange(ctx, period.StartDate, period.EndDate, []string{workerID})
	if err != nil {
		return attendance.Summary{}, fmt.Errorf("failed to list attendance records: %w", err)
	}
	if err := VerifyRecords("period_summary", records); err != nil {
		slog.Error("Attendance records are inconsistent", "error", err)
		return attendance.Summary{}, err
	}

	return PeriodSummary(records, workerID, period), nil
}

// Subscribe implements attendance.Service. The subscription ends with ctx.
func (s *AttendanceServiceImpl) Subscribe(ctx context.Context) (<-chan sse.Event, func()) {
	ch, cleanup := s.hub.Subscribe(Topic)
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return ch, cleanup
}

func (s *AttendanceServiceImpl) getWorker(ctx context.Context, id string) (worker.Worker, error) {
	w, err := s.workerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, worker.ErrWorkerNotFound) {
			return worker.Worker{}, validator.ValidationErrors{{
				Field:   "worker_id",
				Message: fmt.Sprintf("worker %s not found", id),
				Err:     attendance.ErrUnknownWorker,
			}}
		}
		return worker.Worker{}, fmt.Errorf("failed to get worker: %w", err)
	}
	return w, nil
}

func (s *AttendanceServiceImpl) publish(event string, rec attendance.Record) {
	s.hub.Publish(sse.Event{
		Topic: Topic,
		Event: event,
		Data:  attendance.NewRecordResponse(rec),
	})
}

func NewAttendanceService(
	attendanceRepo attendance.Repository,
	workerRepo worker.Repository,
	projectRepo project.Repository,
	clk clock.Clock,
	hub *sse.Hub,
	cfg Config,
) attendance.Service {
	if clk == nil {
		clk = clock.System()
	}
	if hub == nil {
		hub = sse.NewHub(0)
	}
	return &AttendanceServiceImpl{
		attendanceRepo: attendanceRepo,
		workerRepo:     workerRepo,
		projectRepo:    projectRepo,
		clock:          clk,
		hub:            hub,
		locks:          keylock.New(),
		cfg:            cfg.withDefaults(),
	}
}
