package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/handlers"
	"github.com/nfrund/taskmanager/internal/rendering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPageServer(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	svc, _ := newTestService(t, nil)

	e := echo.New()
	e.HTTPErrorHandler = handlers.ErrorHandler
	e.Renderer = rendering.NewUniversalRenderer()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-session-secret"))))

	noLimit := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	NewPageHandler(svc).Register(e, noLimit)
	return e, svc
}

func postForm(e *echo.Echo, path string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPages_Home(t *testing.T) {
	e, svc := newPageServer(t)
	_, err := svc.Create(context.Background(), domain.TaskCreate{Title: "Existing", Description: "task"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	html := rec.Body.String()
	assert.Contains(t, html, "<title>Task Manager - TaskApp</title>")

	heading := strings.Index(html, ">Task Manager</h1>")
	form := strings.Index(html, `<form id="task-form"`)
	list := strings.Index(html, `<div id="task-list"`)
	require.True(t, heading > 0 && form > 0 && list > 0, html)
	assert.Less(t, heading, form)
	assert.Less(t, form, list)
	assert.Contains(t, html, "<strong>Existing</strong>")
}

func TestPages_Fragments(t *testing.T) {
	e, _ := newPageServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/form", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<form id="task-form"`))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/list", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<div id="task-list"`))
	assert.Contains(t, rec.Body.String(), "No tasks yet.")
}

func TestPages_CreateHTMX(t *testing.T) {
	e, _ := newPageServer(t)

	rec := postForm(e, "/tasks", url.Values{"title": {"From htmx"}, "description": {"swap me"}}, true)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<div id="task-list"`))
	assert.Contains(t, body, "<strong>From htmx</strong>")
	assert.Contains(t, body, `<form id="task-form"`)
	assert.Contains(t, body, `hx-swap-oob="true"`, "the form is reset out of band")
}

func TestPages_CreateHTMXInvalid(t *testing.T) {
	e, svc := newPageServer(t)

	rec := postForm(e, "/tasks", url.Values{"title": {"No description"}}, true)

	require.Equal(t, http.StatusOK, rec.Code, "htmx only swaps 2xx responses")
	assert.Equal(t, "#task-form-errors", rec.Header().Get("HX-Retarget"))
	assert.Equal(t, "outerHTML", rec.Header().Get("HX-Reswap"))
	assert.Contains(t, rec.Body.String(), "<li>Description is required.</li>")

	tasks, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestPages_CreatePlainForm(t *testing.T) {
	e, svc := newPageServer(t)

	rec := postForm(e, "/tasks", url.Values{"title": {"No JS"}, "description": {"plain post"}}, false)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderSetCookie), "the success flash is stored in the session")

	tasks, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "No JS", tasks[0].Title)
}

func TestPages_CreatePlainFormInvalid(t *testing.T) {
	e, _ := newPageServer(t)

	rec := postForm(e, "/tasks", url.Values{"title": {"Kept title"}, "description": {"  "}}, false)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Kept title"`)
	assert.Contains(t, body, "Description is required.")
	assert.Contains(t, body, ">Task Manager</h1>")
}

func TestPages_FlashShownOnce(t *testing.T) {
	e, _ := newPageServer(t)

	rec := postForm(e, "/tasks", url.Values{"title": {"Flash"}, "description": {"me"}}, false)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "Task created.")
}

func TestPages_DeleteHTMX(t *testing.T) {
	e, svc := newPageServer(t)
	task, err := svc.Create(context.Background(), domain.TaskCreate{Title: "Doomed", Description: "x"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodDelete, "/tasks/"+itoa(task.ID), nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
		assert.NotContains(t, rec.Body.String(), "Doomed")
		assert.Contains(t, rec.Body.String(), "No tasks yet.")
	}
}

func TestPages_DeleteFallback(t *testing.T) {
	e, svc := newPageServer(t)
	task, err := svc.Create(context.Background(), domain.TaskCreate{Title: "Doomed", Description: "x"})
	require.NoError(t, err)

	rec := postForm(e, "/tasks/"+itoa(task.ID)+"/delete", url.Values{}, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	_, err = svc.Get(context.Background(), task.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	rec = postForm(e, "/tasks/"+itoa(task.ID)+"/delete", url.Values{}, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "a missing task still redirects, with an error flash")
}
