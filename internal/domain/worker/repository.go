package worker

import "context"

// Repository is the worker directory the engine reads its roster and wage data from.
type Repository interface {
	GetByID(ctx context.Context, id string) (Worker, error)

	// ListActive returns every worker with status active, ordered by ID.
	ListActive(ctx context.Context) ([]Worker, error)

	// Save inserts or replaces a worker. Used for seeding the directory.
	Save(ctx context.Context, w Worker) error
}
