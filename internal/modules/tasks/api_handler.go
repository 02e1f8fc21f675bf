package tasks

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/handlers"
)

const taskIDParam = "task_id"

// APIHandler serves the JSON task API.
type APIHandler struct {
	svc *Service
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(svc *Service) *APIHandler {
	return &APIHandler{svc: svc}
}

// Register mounts the API on g, which is expected to be the /tasks group.
func (h *APIHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:"+taskIDParam, h.Get)
	g.PATCH("/:"+taskIDParam, h.Update)
	g.DELETE("/:"+taskIDParam, h.Delete)
}

// List handles GET /tasks.
func (h *APIHandler) List(c echo.Context) error {
	tasks, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, handlers.NewTaskReadList(tasks))
}

// Create handles POST /tasks.
func (h *APIHandler) Create(c echo.Context) error {
	var in domain.TaskCreate
	if err := handlers.BindJSON(c, &in); err != nil {
		return apiError(err)
	}
	task, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusCreated, handlers.NewTaskRead(*task))
}

// Get handles GET /tasks/:task_id.
func (h *APIHandler) Get(c echo.Context) error {
	id, err := handlers.PathID(c, taskIDParam)
	if err != nil {
		return err
	}
	task, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, handlers.NewTaskRead(*task))
}

// Update handles PATCH /tasks/:task_id.
func (h *APIHandler) Update(c echo.Context) error {
	id, err := handlers.PathID(c, taskIDParam)
	if err != nil {
		return err
	}
	var in domain.TaskUpdate
	if err := handlers.BindJSON(c, &in); err != nil {
		return apiError(err)
	}
	task, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, handlers.NewTaskRead(*task))
}

// Delete handles DELETE /tasks/:task_id.
func (h *APIHandler) Delete(c echo.Context) error {
	id, err := handlers.PathID(c, taskIDParam)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apiError(err)
	}
	return c.JSON(http.StatusOK, handlers.DetailResponse{Detail: "Task deleted"})
}

// apiError maps domain errors to HTTP errors. Anything unrecognised is left
// for the server's error handler to report as a 500.
func apiError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return err
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Task not found").SetInternal(err)
	case errors.Is(err, domain.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, handlers.ValidationResponseFrom(err)).SetInternal(err)
	default:
		return err
	}
}
