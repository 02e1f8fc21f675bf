// Package events defines the bus topics published when tasks change.
package events

import (
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/pubsub"
)

// TaskCreated is published after a task is stored.
type TaskCreated struct {
	Task domain.Task `json:"task"`
}

// TaskUpdated is published after a task changes.
type TaskUpdated struct {
	Task domain.Task `json:"task"`
}

// TaskDeleted is published after a task is removed.
type TaskDeleted struct {
	TaskID int64 `json:"task_id"`
}

var (
	Created = pubsub.NewEvent[TaskCreated]("task.created", "A task was created")
	Updated = pubsub.NewEvent[TaskUpdated]("task.updated", "A task's title or description changed")
	Deleted = pubsub.NewEvent[TaskDeleted]("task.deleted", "A task was deleted")
)
