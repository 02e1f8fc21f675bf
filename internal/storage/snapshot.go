package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nfrund/taskmanager/internal/domain"
)

// SnapshotVersion is the format version written by Export.
const SnapshotVersion = 1

// Snapshot is the on-disk form of every task in a store.
type Snapshot struct {
	Version    int           `json:"version"`
	ExportedAt time.Time     `json:"exported_at"`
	Tasks      []domain.Task `json:"tasks"`
}

// Export writes every task in repo to path as an indented JSON snapshot and
// returns the number of tasks written.
func Export(ctx context.Context, repo domain.TaskRepository, store Store, path string) (int, error) {
	tasks, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing tasks: %w", err)
	}

	data, err := json.MarshalIndent(Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Tasks:      tasks,
	}, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := store.Save(ctx, path, bytes.NewReader(append(data, '\n'))); err != nil {
		return 0, fmt.Errorf("writing snapshot %q: %w", path, err)
	}

	slog.InfoContext(ctx, "Tasks exported", "event", "tasks_exported", "path", path, "count", len(tasks))
	return len(tasks), nil
}

// Import reads a snapshot from path and creates its tasks in repo. Tasks get
// new IDs from the store; their original order is kept. Every task is
// validated before any is stored, and a failed import leaves repo as it was:
// stores implementing domain.TaskBatchCreator create the tasks atomically,
// others have the tasks created so far deleted again.
func Import(ctx context.Context, repo domain.TaskRepository, store Store, path string) (int, error) {
	snap, err := ReadSnapshot(ctx, store, path)
	if err != nil {
		return 0, err
	}

	inputs := make([]domain.TaskCreate, 0, len(snap.Tasks))
	for i, t := range snap.Tasks {
		in := domain.TaskCreate{Title: t.Title, Description: t.Description}
		if err := in.Validate(); err != nil {
			return 0, fmt.Errorf("task %d (id %d) in %q: %w", i, t.ID, path, err)
		}
		inputs = append(inputs, in)
	}

	if err := createAll(ctx, repo, inputs); err != nil {
		return 0, fmt.Errorf("importing %q: %w", path, err)
	}

	slog.InfoContext(ctx, "Tasks imported", "event", "tasks_imported", "path", path, "count", len(inputs))
	return len(inputs), nil
}

func createAll(ctx context.Context, repo domain.TaskRepository, inputs []domain.TaskCreate) error {
	if batch, ok := repo.(domain.TaskBatchCreator); ok {
		_, err := batch.CreateBatch(ctx, inputs)
		return err
	}

	created := make([]int64, 0, len(inputs))
	for i, in := range inputs {
		t, err := repo.Create(ctx, in)
		if err != nil {
			err = fmt.Errorf("task %d: %w", i, err)
			return errors.Join(err, undoCreates(ctx, repo, created))
		}
		created = append(created, t.ID)
	}
	return nil
}

// undoCreates deletes the tasks of a failed import, even when ctx is already done.
func undoCreates(ctx context.Context, repo domain.TaskRepository, ids []int64) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, id := range ids {
		if err := repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, fmt.Errorf("removing partially imported task %d: %w", id, err))
		}
	}
	if len(errs) > 0 {
		slog.ErrorContext(ctx, "Could not undo a failed import", "event", "tasks_import_undo_failed", "remaining", len(errs))
	}
	return errors.Join(errs...)
}

// ReadSnapshot decodes and version-checks the snapshot at path.
func ReadSnapshot(ctx context.Context, store Store, path string) (*Snapshot, error) {
	f, err := store.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %q: %w", path, err)
	}
	defer f.Close()

	var snap Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", path, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot %q has unsupported version %d", path, snap.Version)
	}
	return &snap, nil
}
