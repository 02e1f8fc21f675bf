package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	appmiddleware "github.com/nfrund/taskmanager/internal/middleware"
)

const healthPingTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	DatabaseError string `json:"database_error,omitempty"`
}

// RegisterRoutes sets up the routes the server owns. Feature routes come from modules.
func (s *Server) RegisterRoutes() {
	s.E.GET("/health", s.Health)
}

// Health reports whether the task store answers a ping.
func (s *Server) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		appmiddleware.FromContext(c.Request().Context()).Error("Health check failed", "event", "health_check_failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:        "error",
			Database:      "unavailable",
			DatabaseError: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}
