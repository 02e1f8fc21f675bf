package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

const taskTable = "task"

// taskRecord is the shape of a task row as SurrealDB returns it.
type taskRecord struct {
	ID          *models.RecordID       `json:"id,omitempty"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	CreatedAt   *models.CustomDateTime `json:"created_at,omitempty"`
	UpdatedAt   *models.CustomDateTime `json:"updated_at,omitempty"`
}

type counterRecord struct {
	Value int64 `json:"value"`
}

// TaskStore is the SurrealDB implementation of domain.TaskRepository.
// Task records use integer ids drawn from the counter:task record.
type TaskStore struct {
	conn     *Connection
	tasks    *Client[taskRecord]
	counters *Client[counterRecord]
}

// Ensure TaskStore implements the TaskRepository interface.
var _ domain.TaskRepository = (*TaskStore)(nil)

// NewTaskStore creates a task store on top of an established connection.
func NewTaskStore(conn *Connection, cfg config.Provider) (*TaskStore, error) {
	tasks, err := NewClient[taskRecord](conn, cfg)
	if err != nil {
		return nil, err
	}
	counters, err := NewClient[counterRecord](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &TaskStore{conn: conn, tasks: tasks, counters: counters}, nil
}

func (s *TaskStore) List(ctx context.Context) ([]domain.Task, error) {
	records, err := s.tasks.Query(ctx, "SELECT * FROM task ORDER BY id ASC", nil)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(records))
	for i := range records {
		task, err := records[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, nil
}

func (s *TaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	record, err := s.tasks.QueryOne(ctx, "SELECT * FROM type::thing($tb, $id)", map[string]any{
		"tb": taskTable,
		"id": id,
	})
	if err != nil {
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record.toDomain()
}

func (s *TaskStore) Create(ctx context.Context, in domain.TaskCreate) (*domain.Task, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.tasks.Mutate(ctx,
		"CREATE type::thing($tb, $id) SET title = $title, description = $description, created_at = time::now(), updated_at = time::now()",
		map[string]any{
			"tb":          taskTable,
			"id":          id,
			"title":       in.Title,
			"description": in.Description,
		})
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	if record == nil {
		return nil, NewDBError(ErrQueryFailed, "create returned no record")
	}

	slog.DebugContext(ctx, "Task created", "event", "task_store_create", "store", "surreal", "task_id", id)
	return record.toDomain()
}

func (s *TaskStore) Update(ctx context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	if in.IsEmpty() {
		return s.Get(ctx, id)
	}

	sets := make([]string, 0, 3)
	params := map[string]any{"tb": taskTable, "id": id}
	if in.Title != nil {
		sets = append(sets, "title = $title")
		params["title"] = *in.Title
	}
	if in.Description != nil {
		sets = append(sets, "description = $description")
		params["description"] = *in.Description
	}
	sets = append(sets, "updated_at = time::now()")

	// UPDATE on a missing record yields no rows rather than creating one.
	query := "UPDATE type::thing($tb, $id) SET " + strings.Join(sets, ", ") + " RETURN AFTER"
	record, err := s.tasks.Mutate(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("updating task %d: %w", id, err)
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record.toDomain()
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	record, err := s.tasks.Mutate(ctx, "DELETE type::thing($tb, $id) RETURN BEFORE", map[string]any{
		"tb": taskTable,
		"id": id,
	})
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	if record == nil {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *TaskStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// nextID increments the task counter and returns the new value.
func (s *TaskStore) nextID(ctx context.Context) (int64, error) {
	counter, err := s.counters.Mutate(ctx, "UPSERT counter:task SET value += 1 RETURN AFTER", nil)
	if err != nil {
		return 0, fmt.Errorf("allocating task id: %w", err)
	}
	if counter == nil || counter.Value <= 0 {
		return 0, NewDBError(ErrQueryFailed, "task counter returned no value")
	}
	return counter.Value, nil
}

func (r *taskRecord) toDomain() (*domain.Task, error) {
	if r.ID == nil {
		return nil, NewDBError(ErrQueryFailed, "task record has no id")
	}
	id, err := recordIntID(*r.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Task{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   timeOf(r.CreatedAt),
		UpdatedAt:   timeOf(r.UpdatedAt),
	}, nil
}

// recordIntID extracts the numeric part of a record id such as task:42.
// CBOR decoding may surface it as any integer or float type.
func recordIntID(rid models.RecordID) (int64, error) {
	switch v := rid.ID.(type) {
	case int64:
		return v, nil
	case uint64:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, NewDBError(fmt.Errorf("%w: unexpected record id type", ErrQueryFailed), fmt.Sprintf("%s:%v (%T)", rid.Table, rid.ID, rid.ID))
	}
}

func timeOf(dt *models.CustomDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	return dt.Time.UTC()
}
