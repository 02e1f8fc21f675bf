package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/handlers"
	"github.com/nfrund/taskmanager/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formServer(perMinute int) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handlers.ErrorHandler
	e.Use(middleware.Logger)
	e.POST("/tasks", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/")
	}, middleware.RateLimiter(perMinute))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func post(e *echo.Echo, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/tasks", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	req.RemoteAddr = addr
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	const perMinute = 5
	e := formServer(perMinute)

	for i := range perMinute {
		require.Equal(t, http.StatusSeeOther, post(e, "192.0.2.10:1000").Code, "post %d is within the burst", i+1)
	}

	rec := post(e, "192.0.2.10:1001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"detail":"Too many requests. Please try again later."}`, rec.Body.String())
	assert.Contains(t, logs.String(), "event=rate_limited")
	assert.Contains(t, logs.String(), "client=192.0.2.10")
}

func TestRateLimiter_Scope(t *testing.T) {
	e := formServer(1)
	require.Equal(t, http.StatusSeeOther, post(e, "198.51.100.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, post(e, "198.51.100.1:2").Code)

	t.Run("other clients have their own allowance", func(t *testing.T) {
		assert.Equal(t, http.StatusSeeOther, post(e, "198.51.100.2:1").Code)
	})

	t.Run("unlimited routes are untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "198.51.100.1:3"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
