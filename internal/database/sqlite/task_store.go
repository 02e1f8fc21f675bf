package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nfrund/taskmanager/internal/domain"
)

const (
	taskColumns = `id, title, description, created_at, updated_at`
	insertTask  = `INSERT INTO tasks(title, description, created_at, updated_at) VALUES (?, ?, ?, ?)`
)

// TaskStore is the SQLite implementation of domain.TaskRepository.
type TaskStore struct {
	db *sql.DB
}

var (
	_ domain.TaskRepository   = (*TaskStore)(nil)
	_ domain.TaskBatchCreator = (*TaskStore)(nil)
)

// NewTaskStore opens the database at path and brings its schema up to date.
func NewTaskStore(path string) (*TaskStore, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", path, err)
	}
	version, err := Migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("SQLite task store ready", "event", "sqlite_store_ready", "path", path, "schema_version", version)
	return &TaskStore{db: db}, nil
}

// NewTaskStoreWithDB wraps an existing, already migrated database.
func NewTaskStoreWithDB(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func (s *TaskStore) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	return getTask(ctx, s.db, id)
}

func (s *TaskStore) Create(ctx context.Context, in domain.TaskCreate) (*domain.Task, error) {
	now := timestamp()
	res, err := s.db.ExecContext(ctx, insertTask, in.Title, in.Description, now, now)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new task id: %w", err)
	}
	return &domain.Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CreateBatch inserts every task in one transaction. On error nothing is stored.
func (s *TaskStore) CreateBatch(ctx context.Context, in []domain.TaskCreate) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(in))
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertTask)
		if err != nil {
			return fmt.Errorf("preparing task insert: %w", err)
		}
		defer stmt.Close()

		now := timestamp()
		for i, c := range in {
			res, err := stmt.ExecContext(ctx, c.Title, c.Description, now, now)
			if err != nil {
				return fmt.Errorf("creating task %d of %d: %w", i+1, len(in), err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("reading new task id: %w", err)
			}
			out = append(out, domain.Task{ID: id, Title: c.Title, Description: c.Description, CreatedAt: now, UpdatedAt: now})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TaskStore) Update(ctx context.Context, id int64, in domain.TaskUpdate) (*domain.Task, error) {
	var out *domain.Task
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.IsEmpty() {
			out = current
			return nil
		}

		sets := make([]string, 0, 3)
		args := make([]any, 0, 4)
		if in.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *in.Title)
		}
		if in.Description != nil {
			sets = append(sets, "description = ?")
			args = append(args, *in.Description)
		}
		now := timestamp()
		sets = append(sets, "updated_at = ?")
		args = append(args, now, id)

		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return fmt.Errorf("updating task %d: %w", id, err)
		}
		in.Apply(current)
		current.UpdatedAt = now
		out = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *TaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *TaskStore) Close(context.Context) error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getTask(ctx context.Context, q queryer, id int64) (*domain.Task, error) {
	var t domain.Task
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err := scanTask(row, &t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting task %d: %w", id, err)
	}
	return &t, nil
}

func scanTask(s scanner, t *domain.Task) error {
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return nil
}
