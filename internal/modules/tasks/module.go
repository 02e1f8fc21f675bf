package tasks

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/hub"
	"github.com/nfrund/taskmanager/internal/middleware"
	"github.com/nfrund/taskmanager/internal/module"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/registry"
	"github.com/nfrund/taskmanager/internal/rendering"
)

// ServiceKey is the registry key of the task service.
var ServiceKey = registry.Key[*Service]("tasks.service")

// Dependencies are the collaborators the module needs from the application.
type Dependencies struct {
	Repo     domain.TaskRepository
	Bus      pubsub.Bus
	Renderer rendering.Renderer
	Config   config.Provider
	// Hooks is optional.
	Hooks Hooks
}

// TasksModule implements the module.Module interface.
type TasksModule struct {
	module.BaseModule
	deps Dependencies

	hub    *hub.Hub
	cancel context.CancelFunc
}

var _ module.Module = (*TasksModule)(nil)

// New creates the tasks module.
func New(deps Dependencies) *TasksModule {
	return &TasksModule{deps: deps}
}

// Name returns the unique name for the module.
func (m *TasksModule) Name() string {
	return "tasks"
}

// Register builds the task service and shares it through the registry.
func (m *TasksModule) Register(reg *registry.Registry) error {
	registry.Set(reg, ServiceKey, NewService(m.deps.Repo, m.deps.Bus, m.deps.Hooks))
	return nil
}

// Boot mounts the routes and starts the live channel. The live channel runs
// until ctx ends or Shutdown is called.
func (m *TasksModule) Boot(ctx context.Context, root *echo.Echo, api *echo.Group, reg *registry.Registry) error {
	svc, err := registry.Lookup(reg, ServiceKey)
	if err != nil {
		return err
	}

	NewAPIHandler(svc).Register(api.Group("/tasks"))
	NewPageHandler(svc).Register(root, middleware.RateLimiter(m.deps.Config.GetFormRateLimit()))

	liveCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.hub = hub.NewHub()
	go m.hub.Run(liveCtx)

	live := NewLive(svc, m.hub, m.deps.Bus, m.deps.Renderer, m.deps.Config.GetCORSOrigins())
	if err := live.Start(liveCtx); err != nil {
		cancel()
		return err
	}
	root.GET("/tasks/ws", live.ServeWS)

	slog.Info("Tasks module booted", "event", "module_booted", "module", m.Name())
	return nil
}

// Shutdown stops the live channel and waits for the hub to close its clients.
func (m *TasksModule) Shutdown(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	m.cancel()
	select {
	case <-m.hub.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
