package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/taskmanager/internal/config"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/handlers"
	appmiddleware "github.com/nfrund/taskmanager/internal/middleware"
	"github.com/nfrund/taskmanager/internal/module"
	"github.com/nfrund/taskmanager/internal/pubsub"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/nfrund/taskmanager/web"
)

// Dependencies holds the services the server is built from.
type Dependencies struct {
	Config   config.Provider
	Store    domain.TaskRepository
	Renderer rendering.Renderer
	Bus      pubsub.Bus
	Echo     *echo.Echo
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	Store    domain.TaskRepository
	Bus      pubsub.Bus
	Renderer rendering.Renderer

	// API is the versioned JSON group modules mount their endpoints on.
	API *echo.Group

	modules []module.Module

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a new Server instance with its middleware stack and core routes.
func New(deps Dependencies) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Store == nil {
		return nil, errors.New("server: task store is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("server: renderer is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("server: bus is required")
	}

	e := deps.Echo
	if e == nil {
		e = echo.New()
	}
	e.HideBanner = true
	e.HidePort = true
	e.Debug = deps.Config.IsDebug()

	s := &Server{
		E:        e,
		Cfg:      deps.Config,
		Store:    deps.Store,
		Bus:      deps.Bus,
		Renderer: deps.Renderer,
	}

	s.setupMiddleware()
	setupErrorHandling(e)
	s.setupStatic()
	s.API = e.Group(deps.Config.GetAPIPrefix())
	s.RegisterRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	e := s.E
	cfg := s.Cfg

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger := appmiddleware.FromContext(c.Request().Context())
			attrs := []any{
				"event", "http_request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				logger.Warn("Request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("Request handled", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.GetCORSOrigins(),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	// Session cookies only carry flash messages.
	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.GetEnvironment() == "production",
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	e.Validator = handlers.NewValidator()
	if r, ok := s.Renderer.(echo.Renderer); ok {
		e.Renderer = r
	}
}

// setupErrorHandling installs the application's error handler.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = handlers.ErrorHandler
}

func (s *Server) setupStatic() {
	s.E.StaticFS("/static", echo.MustSubFS(web.FS, "static"))
	slog.Debug("Serving embedded static assets", "event", "static_assets", "prefix", "/static")
}
