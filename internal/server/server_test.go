package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/database/memory"
	"github.com/nfrund/taskmanager/internal/module"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/registry"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorHandler_WithStackTrace(t *testing.T) {
	// --- Setup ---
	e := echo.New()

	// 1. Capture log output
	// We temporarily redirect slog's output to a buffer to inspect it.
	var logBuffer bytes.Buffer
	handler := slog.NewTextHandler(&logBuffer, &slog.HandlerOptions{
		AddSource: true,
	})
	logger := slog.New(handler)
	// Store the original default logger and defer its restoration
	originalLogger := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(originalLogger)

	// 2. Set up the error handler we want to test
	setupErrorHandling(e)

	// 3. Define a route that will always produce an unhandled error
	e.GET("/test-unhandled-error", func(c echo.Context) error {
		return errors.New("a deliberate unhandled error occurred")
	})

	// --- Act ---
	req := httptest.NewRequest(http.MethodGet, "/test-unhandled-error", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	// --- Assert ---
	require.Equal(t, http.StatusInternalServerError, rec.Code, "Expected a 500 Internal Server Error response")
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())

	logOutput := logBuffer.String()
	assert.Contains(t, logOutput, "Internal Server Error (Unhandled)", "Log message should indicate an unhandled error")
	assert.Contains(t, logOutput, "error=\"a deliberate unhandled error occurred\"", "Log should contain the original error message")
	assert.Contains(t, logOutput, "stack_trace=", "Log must contain the stack_trace field")

	// A good stack trace will contain the path to the Go runtime and this test file.
	assert.Contains(t, logOutput, "runtime/debug/stack.go", "Stack trace should originate from the debug package")
	assert.Contains(t, logOutput, "internal/server/server_test.go", "Stack trace should point back to this test file")
}

// flakyStore is a memory store whose Ping fails with pingErr.
type flakyStore struct {
	*memory.TaskStore
	pingErr error
	closed  bool
}

func (s *flakyStore) Ping(context.Context) error { return s.pingErr }

func (s *flakyStore) Close(context.Context) error {
	s.closed = true
	return nil
}

func testConfig(t *testing.T) config.Provider {
	t.Helper()
	t.Setenv("BACKEND_CORS_ORIGINS", "http://localhost:5173")
	t.Setenv("API_V1_PREFIX", "/api/v1")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, store *flakyStore) *Server {
	t.Helper()
	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bus.Close() })

	s, err := New(Dependencies{
		Config:   testConfig(t),
		Store:    store,
		Renderer: rendering.NewUniversalRenderer(),
		Bus:      bus,
	})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)

	_, err = New(Dependencies{Config: testConfig(t)})
	assert.ErrorContains(t, err, "task store")
}

func TestHealth(t *testing.T) {
	t.Run("store reachable", func(t *testing.T) {
		s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore()})

		rec := httptest.NewRecorder()
		s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rec.Body.String())
	})

	t.Run("store unavailable", func(t *testing.T) {
		s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore(), pingErr: errors.New("connection refused")})

		rec := httptest.NewRecorder()
		s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, HealthResponse{Status: "error", Database: "unavailable", DatabaseError: "connection refused"}, body)
	})

	t.Run("trailing slash is tolerated", func(t *testing.T) {
		s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore()})

		rec := httptest.NewRecorder()
		s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "http://localhost:5173", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.test")
	rec = httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore()})

	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".task-item")
}

func TestUnknownRoute_JSONNotFound(t *testing.T) {
	s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore()})

	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())
}

// recordingModule appends its lifecycle calls to a shared log.
type recordingModule struct {
	module.BaseModule
	name    string
	log     *[]string
	bootErr error
}

func (m *recordingModule) Name() string { return m.name }

func (m *recordingModule) Register(*registry.Registry) error {
	*m.log = append(*m.log, "register:"+m.name)
	return nil
}

func (m *recordingModule) Boot(_ context.Context, root *echo.Echo, api *echo.Group, _ *registry.Registry) error {
	*m.log = append(*m.log, "boot:"+m.name)
	api.GET("/"+m.name, func(c echo.Context) error { return c.String(http.StatusOK, m.name) })
	return m.bootErr
}

func (m *recordingModule) Shutdown(context.Context) error {
	*m.log = append(*m.log, "shutdown:"+m.name)
	return nil
}

func TestInitModules_LifecycleOrder(t *testing.T) {
	store := &flakyStore{TaskStore: memory.NewTaskStore()}
	s := newTestServer(t, store)

	var calls []string
	modules := []module.Module{
		&recordingModule{name: "first", log: &calls},
		&recordingModule{name: "second", log: &calls},
	}
	require.NoError(t, s.InitModules(context.Background(), modules, registry.New(s.Cfg)))

	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/second", nil))
	assert.Equal(t, "second", rec.Body.String(), "modules mount on the API group")

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, []string{
		"register:first", "register:second",
		"boot:first", "boot:second",
		"shutdown:second", "shutdown:first",
	}, calls)
	assert.True(t, store.closed, "the store is closed last")
}

func TestInitModules_BootFailure(t *testing.T) {
	s := newTestServer(t, &flakyStore{TaskStore: memory.NewTaskStore()})

	var calls []string
	modules := []module.Module{
		&recordingModule{name: "ok", log: &calls},
		&recordingModule{name: "broken", log: &calls, bootErr: errors.New("no hub")},
		&recordingModule{name: "never", log: &calls},
	}
	err := s.InitModules(context.Background(), modules, registry.New(s.Cfg))
	require.ErrorContains(t, err, "booting module broken")

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NotContains(t, calls, "boot:never")
	assert.Contains(t, calls, "shutdown:ok")
	assert.NotContains(t, calls, "shutdown:broken")
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	store := &flakyStore{TaskStore: memory.NewTaskStore()}
	s := newTestServer(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "127.0.0.1:0") }()

	cancel()
	require.NoError(t, <-done)
	assert.True(t, store.closed)
}
