// Package memory provides in-process repositories for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/buildcrew/workforce-engine/internal/domain/attendance"
	"github.com/google/uuid"
)

type AttendanceRepository struct {
	mu      sync.RWMutex
	records map[string]attendance.Record // by ID
	byDay   map[string]string            // DayKey -> ID
	now     func() time.Time
}

func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{
		records: make(map[string]attendance.Record),
		byDay:   make(map[string]string),
		now:     time.Now,
	}
}

func (m *AttendanceRepository) Create(_ context.Context, record attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := record.DayKey()
	if _, exists := m.byDay[key]; exists {
		return attendance.Record{}, attendance.ErrRecordExists
	}

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Record{}, err
	}
	now := m.now().UTC()

	record.ID = id.String()
	record.Version = 1
	record.CreatedAt = now
	record.UpdatedAt = now

	m.records[record.ID] = cloneRecord(record)
	m.byDay[key] = record.ID
	return cloneRecord(record), nil
}

func (m *AttendanceRepository) Update(_ context.Context, record attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.records[record.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	if stored.Version != record.Version {
		return attendance.Record{}, attendance.ErrVersionConflict
	}

	// Identity fields never change on update.
	record.WorkerID = stored.WorkerID
	record.Date = stored.Date
	record.CreatedAt = stored.CreatedAt
	record.Version = stored.Version + 1
	record.UpdatedAt = m.now().UTC()

	m.records[record.ID] = cloneRecord(record)
	return cloneRecord(record), nil
}

func (m *AttendanceRepository) GetByID(_ context.Context, id string) (attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return attendance.Record{}, attendance.ErrRecordNotFound
	}
	return cloneRecord(rec), nil
}

func (m *AttendanceRepository) GetByWorkerAndDate(_ context.Context, workerID string, date time.Time) (*attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byDay[attendance.DayKey(workerID, date)]
	if !ok {
		return nil, nil
	}
	rec := cloneRecord(m.records[id])
	return &rec, nil
}

func (m *AttendanceRepository) ListByDate(_ context.Context, date time.Time) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := date.Format(attendance.DateLayout)
	var result []attendance.Record
	for _, rec := range m.records {
		if rec.Date.Format(attendance.DateLayout) == day {
			result = append(result, cloneRecord(rec))
		}
	}
	sortRecords(result, "worker_id", "asc")
	return result, nil
}

func (m *AttendanceRepository) ListByRange(_ context.Context, start, end time.Time, workerIDs []string) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	period := attendance.Period{StartDate: start, EndDate: end}
	wanted := make(map[string]bool, len(workerIDs))
	for _, id := range workerIDs {
		wanted[id] = true
	}

	var result []attendance.Record
	for _, rec := range m.records {
		if len(wanted) > 0 && !wanted[rec.WorkerID] {
			continue
		}
		if period.Contains(rec.Date) {
			result = append(result, cloneRecord(rec))
		}
	}
	sortRecords(result, "date", "asc")
	return result, nil
}

func (m *AttendanceRepository) List(_ context.Context, filter attendance.RecordFilter) ([]attendance.Record, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []attendance.Record
	for _, rec := range m.records {
		if matchesFilter(rec, filter) {
			matched = append(matched, cloneRecord(rec))
		}
	}
	sortRecords(matched, filter.SortBy, filter.SortOrder)

	total := int64(len(matched))
	return paginate(matched, filter.Page, filter.Limit), total, nil
}

func (m *AttendanceRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return attendance.ErrRecordNotFound
	}
	delete(m.records, id)
	delete(m.byDay, rec.DayKey())
	return nil
}

func matchesFilter(rec attendance.Record, f attendance.RecordFilter) bool {
	day := rec.Date.Format(attendance.DateLayout)

	if f.WorkerID != nil && *f.WorkerID != "" && rec.WorkerID != *f.WorkerID {
		return false
	}
	if f.ProjectID != nil && *f.ProjectID != "" && (rec.ProjectID == nil || *rec.ProjectID != *f.ProjectID) {
		return false
	}
	if f.Date != nil && *f.Date != "" && day != *f.Date {
		return false
	}
	if f.StartDate != nil && *f.StartDate != "" && day < *f.StartDate {
		return false
	}
	if f.EndDate != nil && *f.EndDate != "" && day > *f.EndDate {
		return false
	}
	if f.Status != nil && *f.Status != "" && string(rec.Status) != *f.Status {
		return false
	}
	return true
}

func sortRecords(records []attendance.Record, sortBy, order string) {
	less := func(a, b attendance.Record) bool {
		switch sortBy {
		case "worker_id":
			if a.WorkerID != b.WorkerID {
				return a.WorkerID < b.WorkerID
			}
		case "status":
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if da, db := a.Date.Format(attendance.DateLayout), b.Date.Format(attendance.DateLayout); da != db {
				return da < db
			}
		}
		if a.WorkerID != b.WorkerID {
			return a.WorkerID < b.WorkerID
		}
		return a.ID < b.ID
	}

	sort.Slice(records, func(i, j int) bool {
		if order == "desc" {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func cloneRecord(r attendance.Record) attendance.Record {
	r.ClockIn = cloneEntry(r.ClockIn)
	r.ClockOut = cloneEntry(r.ClockOut)
	return r
}

func cloneEntry(e *attendance.Entry) *attendance.Entry {
	if e == nil {
		return nil
	}
	c := *e
	if e.Location != nil {
		loc := *e.Location
		c.Location = &loc
	}
	return &c
}
