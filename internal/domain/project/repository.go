package project

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Project, error)
	Save(ctx context.Context, p Project) error
}
