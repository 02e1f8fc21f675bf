package app

import (
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/module"
	"github.com/nfrund/taskmanager/internal/modules/tasks"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/samber/do/v2"
)

// Dependencies holds the core services that are required by the application's modules.
type Dependencies struct {
	Config   config.Provider
	Store    domain.TaskRepository
	Bus      pubsub.Bus
	Renderer rendering.Renderer
	// Hooks is nil when no hook scripts are configured.
	Hooks tasks.Hooks
}

// NewModules creates and returns the list of all active modules for the application.
// This is the single source of truth for which features are enabled.
func NewModules(deps Dependencies) []module.Module {
	return []module.Module{
		tasks.New(tasks.Dependencies{
			Repo:     deps.Store,
			Bus:      deps.Bus,
			Renderer: deps.Renderer,
			Config:   deps.Config,
			Hooks:    deps.Hooks,
		}),
	}
}

func provideModules(i do.Injector) ([]module.Module, error) {
	store, err := do.Invoke[domain.TaskRepository](i)
	if err != nil {
		return nil, err
	}
	bus, err := do.Invoke[pubsub.Bus](i)
	if err != nil {
		return nil, err
	}
	hooks, err := do.Invoke[*HookScripts](i)
	if err != nil {
		return nil, err
	}
	return NewModules(Dependencies{
		Config:   do.MustInvoke[config.Provider](i),
		Store:    store,
		Bus:      bus,
		Renderer: do.MustInvoke[rendering.Renderer](i),
		Hooks:    hooks.Hooks,
	}), nil
}
