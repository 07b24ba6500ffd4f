package attendance

import (
	"context"
	"time"
)

// Repository stores attendance records. Implementations enforce one record
// per (worker, day) and compare-and-swap on Version.
type Repository interface {
	// Create inserts a new record with Version 1. Returns ErrRecordExists when
	// the worker already has a record for that day.
	Create(ctx context.Context, record Record) (Record, error)

	// Update replaces the whole record when the stored Version equals
	// record.Version, and bumps it. Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, record Record) (Record, error)

	GetByID(ctx context.Context, id string) (Record, error)

	// GetByWorkerAndDate returns nil when the worker has no record that day.
	GetByWorkerAndDate(ctx context.Context, workerID string, date time.Time) (*Record, error)

	ListByDate(ctx context.Context, date time.Time) ([]Record, error)

	// ListByRange returns the records of workerIDs (all workers when empty)
	// between start and end inclusive, as one consistent read.
	ListByRange(ctx context.Context, start, end time.Time, workerIDs []string) ([]Record, error)

	List(ctx context.Context, filter RecordFilter) ([]Record, int64, error)

	Delete(ctx context.Context, id string) error
}
