package tasks

import (
	"context"
	"fmt"

	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/script"
)

// Hook script names, as files in the hooks directory without the extension.
const (
	HookBeforeCreate = "before_create"
	HookBeforeUpdate = "before_update"
)

// HookVars are the globals every hook script can read and assign.
// Setting reject to a non-empty string refuses the change with that message.
var HookVars = []string{"task_id", "title", "description", "reject"}

// Hooks lets operators adjust or refuse task input before it is stored.
type Hooks interface {
	BeforeCreate(ctx context.Context, in *domain.TaskCreate) error
	BeforeUpdate(ctx context.Context, id int64, in *domain.TaskUpdate) error
}

// ScriptHooks runs Tengo hook scripts. A hook without a script is a no-op.
type ScriptHooks struct {
	scripts *script.Hooks
}

var _ Hooks = (*ScriptHooks)(nil)

// NewScriptHooks wraps loaded hook scripts.
func NewScriptHooks(scripts *script.Hooks) *ScriptHooks {
	return &ScriptHooks{scripts: scripts}
}

func (h *ScriptHooks) BeforeCreate(ctx context.Context, in *domain.TaskCreate) error {
	if !h.scripts.Has(HookBeforeCreate) {
		return nil
	}
	out, err := h.scripts.Run(ctx, HookBeforeCreate, map[string]any{
		"title":       in.Title,
		"description": in.Description,
	})
	if err != nil {
		return fmt.Errorf("running %s hook: %w", HookBeforeCreate, err)
	}
	if err := rejection(out); err != nil {
		return err
	}
	if v, ok := out["title"].(string); ok {
		in.Title = v
	}
	if v, ok := out["description"].(string); ok {
		in.Description = v
	}
	return nil
}

// BeforeUpdate passes fields that are not being changed as undefined. A script
// that assigns one adds it to the update.
func (h *ScriptHooks) BeforeUpdate(ctx context.Context, id int64, in *domain.TaskUpdate) error {
	if !h.scripts.Has(HookBeforeUpdate) {
		return nil
	}
	input := map[string]any{"task_id": id}
	if in.Title != nil {
		input["title"] = *in.Title
	}
	if in.Description != nil {
		input["description"] = *in.Description
	}

	out, err := h.scripts.Run(ctx, HookBeforeUpdate, input)
	if err != nil {
		return fmt.Errorf("running %s hook: %w", HookBeforeUpdate, err)
	}
	if err := rejection(out); err != nil {
		return err
	}
	if v, ok := out["title"].(string); ok {
		in.Title = &v
	}
	if v, ok := out["description"].(string); ok {
		in.Description = &v
	}
	return nil
}

func rejection(out map[string]any) error {
	reason, _ := out["reject"].(string)
	if reason == "" {
		return nil
	}
	return &domain.ValidationError{Fields: []domain.FieldError{
		{Field: "task", Message: reason, Type: "rejected"},
	}}
}
