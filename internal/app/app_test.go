package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/database/memory"
	"github.com/nfrund/taskmanager/internal/database/sqlite"
	"github.com/nfrund/taskmanager/internal/modules/tasks"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("STORE_BACKEND", config.BackendMemory)
	t.Setenv("TASK_HOOKS_DIR", "")
	t.Setenv("PUBSUB_TRACING_ENABLED", "false")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func TestNewStore_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := NewStore(ctx, memoryConfig(t))
		require.NoError(t, err)
		assert.IsType(t, &memory.TaskStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.StoreBackend = config.BackendSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "app.db")

		store, err := NewStore(ctx, cfg)
		require.NoError(t, err)
		defer store.Close(ctx)
		assert.IsType(t, &sqlite.TaskStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := memoryConfig(t)
		cfg.StoreBackend = "postgres"

		_, err := NewStore(ctx, cfg)
		assert.ErrorContains(t, err, `unknown store backend "postgres"`)
	})
}

func TestApp_ServerServesHomeAndHealth(t *testing.T) {
	a := New(memoryConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := a.Server(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Shutdown(context.Background())) }()

	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ">Task Manager</h1>")
}

func TestApp_StoreIsShared(t *testing.T) {
	a := New(memoryConfig(t))
	defer a.Shutdown(context.Background())

	first, err := a.Store()
	require.NoError(t, err)
	second, err := a.Store()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestApp_HooksApplyToAPI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tasks.HookBeforeCreate+".tengo"), []byte(`
text := import("text")
if text.contains(title, "spam") {
	reject = "No spam."
}
`), 0o644))

	cfg := memoryConfig(t)
	cfg.TaskHooksDir = dir
	a := New(cfg)
	defer a.Shutdown(context.Background())

	hooks, err := do.Invoke[*HookScripts](a.Injector)
	require.NoError(t, err)
	require.NotNil(t, hooks.Hooks)

	s, err := a.Server(context.Background())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", strings.NewReader(`{"title":"spam offer","description":"buy now"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "No spam.")
}

func TestApp_NoHooksWithoutDirectory(t *testing.T) {
	a := New(memoryConfig(t))
	defer a.Shutdown(context.Background())

	hooks, err := do.Invoke[*HookScripts](a.Injector)
	require.NoError(t, err)
	assert.Nil(t, hooks.Hooks)
	assert.NoError(t, hooks.Shutdown())
}

func TestApp_MissingHooksDirectoryFails(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.TaskHooksDir = filepath.Join(t.TempDir(), "missing")
	a := New(cfg)
	defer a.Shutdown(context.Background())

	_, err := a.Server(context.Background())
	assert.Error(t, err)
}
