package tasks

import (
	"context"
	"fmt"

	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/middleware"
	"github.com/nfrund/taskmanager/internal/modules/tasks/events"
	"github.com/nfrund/taskmanager/internal/pubsub"
)

// Service holds the task use cases. Every successful change is announced on
// the bus; a failed announcement is logged and does not fail the change.
type Service struct {
	repo  domain.TaskRepository
	pub   pubsub.Publisher
	hooks Hooks
}

// NewService creates a task service. hooks may be nil.
func NewService(repo domain.TaskRepository, pub pubsub.Publisher, hooks Hooks) *Service {
	return &Service{repo: repo, pub: pub, hooks: hooks}
}

// List returns every task ordered by ID.
func (s *Service) List(ctx context.Context) ([]domain.Task, error) {
	return s.repo.List(ctx)
}

// Get returns one task or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new task.
func (s *Service) Create(ctx context.Context, in domain.TaskCreate) (*domain.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if s.hooks != nil {
		if err := s.hooks.BeforeCreate(ctx, &in); err != nil {
			return nil, err
		}
		// Hooks may rewrite the input, so it is checked again.
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}

	task, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	middleware.FromContext(ctx).Info("Task created", "event", "task_created", "task_id", task.ID)
	publish(ctx, s.pub, events.Created, events.TaskCreated{Task: *task})
	return task, nil
}

// Update applies a partial update. An update with no fields returns the task unchanged.
func (s *Service) Update(ctx context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if s.hooks != nil {
		if err := s.hooks.BeforeUpdate(ctx, id, &in); err != nil {
			return nil, err
		}
		if err := in.Validate(); err != nil {
			return nil, err
		}
	}

	task, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if !in.IsEmpty() {
		middleware.FromContext(ctx).Info("Task updated", "event", "task_updated", "task_id", task.ID)
		publish(ctx, s.pub, events.Updated, events.TaskUpdated{Task: *task})
	}
	return task, nil
}

// Delete removes a task or returns domain.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	middleware.FromContext(ctx).Info("Task deleted", "event", "task_deleted", "task_id", id)
	publish(ctx, s.pub, events.Deleted, events.TaskDeleted{TaskID: id})
	return nil
}

func publish[T any](ctx context.Context, pub pubsub.Publisher, event pubsub.Event[T], payload T) {
	if pub == nil {
		return
	}
	var metadata map[string]string
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		metadata = map[string]string{pubsub.MetaKeyRequestID: id}
	}
	if err := pubsub.Publish(ctx, pub, event, payload, metadata); err != nil {
		middleware.FromContext(ctx).Error("Failed to publish task event", "event", "task_event_publish_failed", "topic", event.Name(), "error", err)
	}
}
