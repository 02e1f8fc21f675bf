package tasks

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/handlers"
	"github.com/nfrund/taskmanager/internal/middleware"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/nfrund/taskmanager/internal/view"
	"github.com/nfrund/taskmanager/web/src/templates/components"
	"github.com/nfrund/taskmanager/web/src/templates/layouts"
	"github.com/nfrund/taskmanager/web/src/templates/pages"
	g "maragu.dev/gomponents"
)

// PageHandler serves the HTML pages and the HTMX fragments behind them.
// Every form also works without JavaScript: plain posts redirect back to /.
type PageHandler struct {
	svc *Service
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(svc *Service) *PageHandler {
	return &PageHandler{svc: svc}
}

// Register mounts the pages on e. limit guards the routes that change tasks.
func (h *PageHandler) Register(e *echo.Echo, limit echo.MiddlewareFunc) {
	e.GET("/", h.HomeGet)
	e.GET("/tasks/form", h.FormGet)
	e.GET("/tasks/list", h.ListGet)
	e.POST("/tasks", h.CreatePost, limit)
	e.DELETE("/tasks/:"+taskIDParam, h.Delete, limit)
	e.POST("/tasks/:"+taskIDParam+"/delete", h.DeletePost, limit)
}

// HomeGet renders the task manager page.
func (h *PageHandler) HomeGet(c echo.Context) error {
	return h.renderHome(c, http.StatusOK, components.TaskFormData{})
}

// FormGet renders an empty task form fragment.
func (h *PageHandler) FormGet(c echo.Context) error {
	return c.Render(http.StatusOK, "", components.TaskForm(components.TaskFormData{}))
}

// ListGet renders the task list fragment.
func (h *PageHandler) ListGet(c echo.Context) error {
	return h.renderList(c)
}

// CreatePost handles the task form.
func (h *PageHandler) CreatePost(c echo.Context) error {
	ctx := c.Request().Context()

	var in domain.TaskCreate
	if err := (&echo.DefaultBinder{}).BindBody(c, &in); err != nil {
		return err
	}
	submitted := components.TaskFormData{Title: in.Title, Description: in.Description}

	if _, err := h.svc.Create(ctx, in); err != nil {
		if !errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		submitted.Errors = errorMessages(err)
		middleware.FromContext(ctx).Info("Task form rejected", "event", "task_form_invalid", "error", err)

		if isHTMX(c) {
			// Only the error slot changes; the list and the typed input stay put.
			c.Response().Header().Set("HX-Retarget", "#"+components.FormErrorsID)
			c.Response().Header().Set("HX-Reswap", "outerHTML")
			return c.Render(rendering.StatusFor(c, http.StatusUnprocessableEntity), "", components.FormErrors(submitted.Errors))
		}
		return h.renderHome(c, http.StatusUnprocessableEntity, submitted)
	}

	if isHTMX(c) {
		tasks, err := h.svc.List(ctx)
		if err != nil {
			return err
		}
		return c.Render(http.StatusOK, "", g.Group{components.TaskList(tasks), components.TaskFormOOB()})
	}
	view.SetFlashSuccess(c, "Task created.")
	return c.Redirect(http.StatusSeeOther, "/")
}

// Delete handles the HTMX delete button and answers with the refreshed list.
// A task that is already gone is not an error here: the list shows the truth.
func (h *PageHandler) Delete(c echo.Context) error {
	id, err := handlers.PathID(c, taskIDParam)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return h.renderList(c)
}

// DeletePost is the no-JavaScript fallback for Delete.
func (h *PageHandler) DeletePost(c echo.Context) error {
	id, err := handlers.PathID(c, taskIDParam)
	if err != nil {
		return err
	}
	switch err := h.svc.Delete(c.Request().Context(), id); {
	case err == nil:
		view.SetFlashSuccess(c, "Task deleted.")
	case errors.Is(err, domain.ErrNotFound):
		view.SetFlashError(c, "Task not found.")
	default:
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *PageHandler) renderHome(c echo.Context, status int, form components.TaskFormData) error {
	tasks, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	content := view.AdaptGomponentToTempl(pages.HomeWithForm(tasks, form))
	return c.Render(status, "", layouts.Base(pages.HomeTitle, view.GetFlashData(c), content))
}

func (h *PageHandler) renderList(c echo.Context) error {
	tasks, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "", components.TaskList(tasks))
}

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func errorMessages(err error) []string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Messages()
	}
	return []string{err.Error()}
}
