// Package memory provides an in-process task store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nfrund/taskmanager/internal/domain"
)

// TaskStore keeps tasks in a map guarded by a mutex. Its contents are lost on exit.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  map[int64]domain.Task
	nextID int64
	now    func() time.Time
}

var (
	_ domain.TaskRepository   = (*TaskStore)(nil)
	_ domain.TaskBatchCreator = (*TaskStore)(nil)
)

// NewTaskStore returns an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]domain.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *TaskStore) List(_ context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *TaskStore) Get(_ context.Context, id int64) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *TaskStore) Create(_ context.Context, in domain.TaskCreate) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.insert(in, s.now())
	return &t, nil
}

// CreateBatch stores all of in under one lock, so readers see none or all of them.
func (s *TaskStore) CreateBatch(_ context.Context, in []domain.TaskCreate) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]domain.Task, 0, len(in))
	for _, c := range in {
		out = append(out, s.insert(c, now))
	}
	return out, nil
}

// insert assigns the next ID. s.mu must be held.
func (s *TaskStore) insert(in domain.TaskCreate, now time.Time) domain.Task {
	s.nextID++
	t := domain.Task{
		ID:          s.nextID,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[t.ID] = t
	return t
}

func (s *TaskStore) Update(_ context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !in.IsEmpty() {
		in.Apply(&t)
		t.UpdatedAt = s.now()
		s.tasks[id] = t
	}
	return &t, nil
}

func (s *TaskStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *TaskStore) Ping(context.Context) error { return nil }

func (s *TaskStore) Close(context.Context) error { return nil }
