// Package app wires the application's services together.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/module"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/registry"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/nfrund/taskmanager/internal/server"
	"github.com/samber/do/v2"
)

// App is the application container. Services are built lazily on first use,
// so commands that only need the store never start the bus or the server.
type App struct {
	Injector *do.RootScope
}

// New registers every provider for cfg.
func New(cfg config.Provider) *App {
	i := do.New()
	do.ProvideValue(i, cfg)
	do.Provide(i, provideStore)
	do.Provide(i, provideTracing)
	do.Provide(i, provideBus)
	do.Provide(i, provideRenderer)
	do.Provide(i, provideHookScripts)
	do.Provide(i, provideModules)
	do.Provide(i, provideServer)
	return &App{Injector: i}
}

// Store returns the configured task store.
func (a *App) Store() (domain.TaskRepository, error) {
	return do.Invoke[domain.TaskRepository](a.Injector)
}

// Server returns the HTTP server with every module registered and booted.
// Modules stop when ctx is cancelled or the server shuts down.
func (a *App) Server(ctx context.Context) (*server.Server, error) {
	s, err := do.Invoke[*server.Server](a.Injector)
	if err != nil {
		return nil, err
	}
	modules, err := do.Invoke[[]module.Module](a.Injector)
	if err != nil {
		return nil, err
	}
	if err := s.InitModules(ctx, modules, registry.New(s.Cfg)); err != nil {
		return nil, fmt.Errorf("initializing modules: %w", err)
	}
	return s, nil
}

// Serve builds the server and runs it on addr until ctx is cancelled.
func (a *App) Serve(ctx context.Context, addr string) error {
	s, err := a.Server(ctx)
	if err != nil {
		return err
	}
	return s.Start(ctx, addr)
}

// Shutdown releases every service the container built.
func (a *App) Shutdown(ctx context.Context) error {
	report := a.Injector.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		slog.Error("Container shutdown reported errors", "event", "container_shutdown_failed", "error", report)
		return report
	}
	return nil
}

func provideServer(i do.Injector) (*server.Server, error) {
	store, err := do.Invoke[domain.TaskRepository](i)
	if err != nil {
		return nil, err
	}
	bus, err := do.Invoke[pubsub.Bus](i)
	if err != nil {
		return nil, err
	}
	return server.New(server.Dependencies{
		Config:   do.MustInvoke[config.Provider](i),
		Store:    store,
		Renderer: do.MustInvoke[rendering.Renderer](i),
		Bus:      bus,
		Echo:     echo.New(),
	})
}
