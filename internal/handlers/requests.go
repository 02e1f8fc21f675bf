package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// selfValidating is implemented by inputs that normalize and validate themselves,
// such as domain.TaskCreate.
type selfValidating interface {
	Validate() error
}

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements the echo.Validator interface. Inputs with their own
// Validate method are trusted to apply their rules; anything else is checked
// against its struct tags.
func (cv *CustomValidator) Validate(i interface{}) error {
	if v, ok := i.(selfValidating); ok {
		return v.Validate()
	}
	return cv.validator.Struct(i)
}

// BindJSON decodes the request body into dst and validates it. A body that is
// not valid JSON is reported as a 422 like any other validation failure.
func BindJSON(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		var he *echo.HTTPError
		msg := "Request body is not valid JSON."
		if errors.As(err, &he) {
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, NewValidationResponse(
			ValidationDetail{Loc: []any{"body"}, Msg: msg, Type: "json_invalid"},
		)).SetInternal(err)
	}
	return c.Validate(dst)
}

// PathID parses the named path parameter as a task ID.
func PathID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, NewValidationResponse(
			ValidationDetail{
				Loc:  []any{"path", name},
				Msg:  "Input should be a valid integer, unable to parse string as an integer",
				Type: "int_parsing",
			},
		)).SetInternal(err)
	}
	return id, nil
}
