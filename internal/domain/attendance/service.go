package attendance

import (
	"context"
	"time"

	"github.com/buildcrew/workforce-engine/internal/pkg/sse"
)

// Service is the attendance state machine plus its read-side aggregations.
type Service interface {
	// Scan gates a QR, mobile, biometric or imported punch through admission
	// control and applies it. Denials come back in ScanResult, not as errors.
	Scan(ctx context.Context, req ScanRequest) (ScanResult, error)

	// RecordManualEntry declares a day for a worker with no record yet.
	RecordManualEntry(ctx context.Context, req ManualEntryRequest) (Record, error)

	// EditRecord replaces the mutable fields of an existing record.
	EditRecord(ctx context.Context, req EditRecordRequest) (Record, error)

	MarkAllPresent(ctx context.Context, req MarkAllPresentRequest) (MarkAllPresentResult, error)

	GetRecord(ctx context.Context, id string) (Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, int64, error)
	DeleteRecord(ctx context.Context, id string) error

	DailySnapshot(ctx context.Context, day time.Time) (Snapshot, error)
	PeriodSummary(ctx context.Context, workerID string, period Period) (Summary, error)

	// Subscribe streams record changes to live dashboards.
	Subscribe(ctx context.Context) (<-chan sse.Event, func())
}
