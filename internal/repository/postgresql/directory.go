package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
	"github.com/buildcrew/workforce-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type workerRepository struct {
	db *database.DB
}

// wageDocument is the JSONB shape of a worker's wage configuration.
type wageDocument struct {
	Type            string           `json:"type"`
	DailyRate       decimal.Decimal  `json:"daily_rate"`
	HourlyRate      decimal.Decimal  `json:"hourly_rate"`
	FixedSalary     decimal.Decimal  `json:"fixed_salary"`
	OvertimeEnabled bool             `json:"overtime_enabled"`
	OvertimeRate    *decimal.Decimal `json:"overtime_rate,omitempty"`
	PaymentMethod   string           `json:"payment_method,omitempty"`
}

func marshalWage(w *worker.WageConfig) ([]byte, error) {
	if w == nil {
		return nil, nil
	}
	b, err := json.Marshal(wageDocument{
		Type:            string(w.Type),
		DailyRate:       w.DailyRate,
		HourlyRate:      w.HourlyRate,
		FixedSalary:     w.FixedSalary,
		OvertimeEnabled: w.OvertimeEnabled,
		OvertimeRate:    w.OvertimeRate,
		PaymentMethod:   string(w.PaymentMethod),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wage config: %w", err)
	}
	return b, nil
}

func unmarshalWage(b []byte) (*worker.WageConfig, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var doc wageDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wage config: %w", err)
	}
	return &worker.WageConfig{
		Type:            worker.WageType(doc.Type),
		DailyRate:       doc.DailyRate,
		HourlyRate:      doc.HourlyRate,
		FixedSalary:     doc.FixedSalary,
		OvertimeEnabled: doc.OvertimeEnabled,
		OvertimeRate:    doc.OvertimeRate,
		PaymentMethod:   worker.PaymentMethod(doc.PaymentMethod),
	}, nil
}

const workerColumns = `id, name, status, department, employment_type, project_id, wage, created_at, updated_at`

func scanWorker(row pgx.Row) (worker.Worker, error) {
	var (
		w                      worker.Worker
		status, employmentType string
		wage                   []byte
	)
	if err := row.Scan(&w.ID, &w.Name, &status, &w.Department, &employmentType, &w.ProjectID, &wage, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return worker.Worker{}, err
	}
	w.Status = worker.Status(status)
	w.EmploymentType = worker.EmploymentType(employmentType)

	var err error
	if w.Wage, err = unmarshalWage(wage); err != nil {
		return worker.Worker{}, err
	}
	return w, nil
}

// GetByID implements worker.Repository.
func (r *workerRepository) GetByID(ctx context.Context, id string) (worker.Worker, error) {
	q := GetQuerier(ctx, r.db)

	w, err := scanWorker(q.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return worker.Worker{}, worker.ErrWorkerNotFound
		}
		return worker.Worker{}, fmt.Errorf("failed to get worker by ID: %w", err)
	}
	return w, nil
}

// ListActive implements worker.Repository.
func (r *workerRepository) ListActive(ctx context.Context) ([]worker.Worker, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+workerColumns+` FROM workers WHERE status = $1 ORDER BY id`, string(worker.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query active workers: %w", err)
	}
	defer rows.Close()

	workers := []worker.Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workers: %w", err)
	}
	return workers, nil
}

// Save implements worker.Repository.
func (r *workerRepository) Save(ctx context.Context, w worker.Worker) error {
	q := GetQuerier(ctx, r.db)

	wage, err := marshalWage(w.Wage)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workers (id, name, status, department, employment_type, project_id, wage)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			department = EXCLUDED.department,
			employment_type = EXCLUDED.employment_type,
			project_id = EXCLUDED.project_id,
			wage = EXCLUDED.wage,
			updated_at = NOW()
	`
	if _, err := q.Exec(ctx, query, w.ID, w.Name, string(w.Status), w.Department, string(w.EmploymentType), w.ProjectID, wage); err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

func NewWorkerRepository(db *database.DB) worker.Repository {
	return &workerRepository{db: db}
}

type projectRepository struct {
	db *database.DB
}

// GetByID implements project.Repository.
func (r *projectRepository) GetByID(ctx context.Context, id string) (project.Project, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, location, latitude, longitude, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	var p project.Project
	err := q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Location, &p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrProjectNotFound
		}
		return project.Project{}, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return p, nil
}

// Save implements project.Repository.
func (r *projectRepository) Save(ctx context.Context, p project.Project) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO projects (id, name, location, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = NOW()
	`
	if _, err := q.Exec(ctx, query, p.ID, p.Name, p.Location, p.Latitude, p.Longitude); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func NewProjectRepository(db *database.DB) project.Repository {
	return &projectRepository{db: db}
}
