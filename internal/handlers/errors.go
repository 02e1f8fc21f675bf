package handlers

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/taskmanager/internal/domain"
	"github.com/nfrund/taskmanager/internal/middleware"
)

// ErrorHandler is the application's echo.HTTPErrorHandler. API clients get a
// JSON body with a "detail" field; browsers get the same status with plain text.
// Unhandled errors become a 500 and are logged with a stack trace.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	logger := middleware.FromContext(c.Request().Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Internal Server Error (Unhandled)",
			"event", "http_unhandled_error",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
			"stack_trace", string(debug.Stack()),
		)
	} else {
		logger.Debug("Request failed", "event", "http_error", "status", status, "path", c.Request().URL.Path, "error", err)
	}

	var writeErr error
	switch {
	case c.Request().Method == http.MethodHead:
		writeErr = c.NoContent(status)
	case wantsHTML(c):
		writeErr = c.String(status, body.text())
	default:
		writeErr = c.JSON(status, body.payload)
	}
	if writeErr != nil {
		logger.Error("Failed to write error response", "event", "http_error_write_failed", "error", writeErr)
	}
}

type errorBody struct {
	payload any
}

func (b errorBody) text() string {
	switch p := b.payload.(type) {
	case DetailResponse:
		return p.Detail
	case ValidationResponse:
		msgs := make([]string, 0, len(p.Detail))
		for _, d := range p.Detail {
			msgs = append(msgs, d.Msg)
		}
		return strings.Join(msgs, "\n")
	default:
		return http.StatusText(http.StatusInternalServerError)
	}
}

func errorResponse(err error) (int, errorBody) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch msg := he.Message.(type) {
		case string:
			return he.Code, errorBody{DetailResponse{Detail: msg}}
		case ValidationResponse:
			return he.Code, errorBody{msg}
		case DetailResponse:
			return he.Code, errorBody{msg}
		default:
			return he.Code, errorBody{DetailResponse{Detail: http.StatusText(he.Code)}}
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, errorBody{ValidationResponseFrom(err)}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{DetailResponse{Detail: "Not found"}}
	default:
		return http.StatusInternalServerError, errorBody{DetailResponse{Detail: "Internal server error"}}
	}
}

// wantsHTML reports whether the client is a browser page rather than an API client.
func wantsHTML(c echo.Context) bool {
	if c.Request().Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
