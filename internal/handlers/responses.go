package handlers

import (
	"errors"
	"time"

	"github.com/nfrund/taskmanager/internal/domain"
)

// DetailResponse is the standard body for API errors and acknowledgements.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// ValidationDetail describes one invalid input: where it is, what is wrong and the rule it broke.
type ValidationDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// ValidationResponse is the 422 body.
type ValidationResponse struct {
	Detail []ValidationDetail `json:"detail"`
}

// NewValidationResponse builds a 422 body from explicit details.
func NewValidationResponse(details ...ValidationDetail) ValidationResponse {
	return ValidationResponse{Detail: details}
}

// ValidationResponseFrom converts a validation failure into a 422 body. Field
// problems are located in the request body.
func ValidationResponseFrom(err error) ValidationResponse {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return NewValidationResponse(ValidationDetail{Loc: []any{"body"}, Msg: err.Error(), Type: "value_error"})
	}
	details := make([]ValidationDetail, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		details = append(details, ValidationDetail{Loc: []any{"body", f.Field}, Msg: f.Message, Type: f.Type})
	}
	return NewValidationResponse(details...)
}

// TaskRead is the API representation of a task.
type TaskRead struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTaskRead creates a TaskRead from a domain.Task.
func NewTaskRead(t domain.Task) TaskRead {
	return TaskRead{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTaskReadList converts tasks preserving order. It never returns nil so an
// empty list encodes as [].
func NewTaskReadList(tasks []domain.Task) []TaskRead {
	out := make([]TaskRead, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskRead(t))
	}
	return out
}
