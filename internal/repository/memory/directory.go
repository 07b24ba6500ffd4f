package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/buildcrew/workforce-engine/internal/domain/project"
	"github.com/buildcrew/workforce-engine/internal/domain/worker"
)

type WorkerRepository struct {
	mu      sync.RWMutex
	workers map[string]worker.Worker
}

func NewWorkerRepository(workers ...worker.Worker) *WorkerRepository {
	m := &WorkerRepository{workers: make(map[string]worker.Worker)}
	for _, w := range workers {
		m.workers[w.ID] = w
	}
	return m
}

func (m *WorkerRepository) GetByID(_ context.Context, id string) (worker.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.workers[id]
	if !ok {
		return worker.Worker{}, worker.ErrWorkerNotFound
	}
	return w, nil
}

func (m *WorkerRepository) ListActive(_ context.Context) ([]worker.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]worker.Worker, 0, len(m.workers))
	for _, w := range m.workers {
		if w.IsActive() {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *WorkerRepository) Save(_ context.Context, w worker.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
	return nil
}

type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]project.Project
}

func NewProjectRepository(projects ...project.Project) *ProjectRepository {
	m := &ProjectRepository{projects: make(map[string]project.Project)}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *ProjectRepository) GetByID(_ context.Context, id string) (project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return project.Project{}, project.ErrProjectNotFound
	}
	return p, nil
}

func (m *ProjectRepository) Save(_ context.Context, p project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}
