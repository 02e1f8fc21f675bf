package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/database"
	"github.com/nfrund/taskmanager/internal/database/memory"
	"github.com/nfrund/taskmanager/internal/database/sqlite"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/modules/tasks"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/nfrund/taskmanager/internal/script"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/otel/trace"
)

// Tracing owns the tracer used for bus traffic and flushes it on shutdown.
type Tracing struct {
	Enabled  bool
	Tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Shutdown flushes pending spans. The container calls it on shutdown.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

// HookScripts holds the optional task hooks. Hooks is nil when TASK_HOOKS_DIR is unset.
type HookScripts struct {
	Hooks   tasks.Hooks
	scripts *script.Hooks
	cancel  context.CancelFunc
}

// Shutdown stops hot reloading. The container calls it on shutdown.
func (h *HookScripts) Shutdown() error {
	if h.scripts == nil {
		return nil
	}
	h.cancel()
	return h.scripts.Close()
}

// NewStore opens the task store selected by STORE_BACKEND.
func NewStore(ctx context.Context, cfg config.Provider) (domain.TaskRepository, error) {
	switch backend := cfg.GetStoreBackend(); backend {
	case config.BackendSQLite:
		return sqlite.NewTaskStore(cfg.GetSQLitePath())
	case config.BackendSurreal:
		conn := database.NewConnection(cfg)
		if err := conn.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
		}
		conn.StartMonitoring()
		store, err := database.NewTaskStore(conn, cfg)
		if err != nil {
			_ = conn.Close(ctx)
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		slog.Warn("Using the in-memory task store; tasks are lost on restart", "event", "memory_store_selected")
		return memory.NewTaskStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func provideStore(i do.Injector) (domain.TaskRepository, error) {
	return NewStore(context.Background(), do.MustInvoke[config.Provider](i))
}

func provideTracing(i do.Injector) (*Tracing, error) {
	tc := pubsub.LoadTracingConfigFromEnv()
	tracer, shutdown, err := pubsub.SetupOTel(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	return &Tracing{Enabled: tc.Enabled, Tracer: tracer, shutdown: shutdown}, nil
}

func provideBus(i do.Injector) (pubsub.Bus, error) {
	tracing, err := do.Invoke[*Tracing](i)
	if err != nil {
		return nil, err
	}
	opts := []pubsub.Option{pubsub.WithLogger(slog.Default())}
	if tracing.Enabled {
		opts = append(opts, pubsub.WithTracer(tracing.Tracer))
	}
	return pubsub.NewWatermillBridge(opts...), nil
}

func provideRenderer(do.Injector) (rendering.Renderer, error) {
	return rendering.NewUniversalRenderer(), nil
}

func provideHookScripts(i do.Injector) (*HookScripts, error) {
	dir := do.MustInvoke[config.Provider](i).GetTaskHooksDir()
	if dir == "" {
		return &HookScripts{}, nil
	}

	scripts, err := script.NewHooks(dir, script.NewTengoEngine(), tasks.HookVars...)
	if err != nil {
		return nil, fmt.Errorf("loading task hooks from %q: %w", dir, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := scripts.Watch(ctx); err != nil {
		// Hooks still work without hot reloading.
		slog.Warn("Task hook hot reloading disabled", "event", "hooks_watch_failed", "dir", dir, "error", err)
	}
	return &HookScripts{Hooks: tasks.NewScriptHooks(scripts), scripts: scripts, cancel: cancel}, nil
}
