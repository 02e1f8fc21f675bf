package domain

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

// Field limits for task input.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so errors line up with the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Task is a single unit of work tracked by the application.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskCreate is the input for creating a task. Both fields are required.
type TaskCreate struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Description string `json:"description" form:"description" validate:"required,max=2000"`
}

// Normalize trims surrounding whitespace and converts both fields to NFC.
func (in *TaskCreate) Normalize() {
	in.Title = normalizeText(in.Title)
	in.Description = normalizeText(in.Description)
}

// Validate normalizes the input and checks it against the field rules.
func (in *TaskCreate) Validate() error {
	in.Normalize()
	return toValidationError(validatorInstance.Struct(in))
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description" validate:"omitnil,min=1,max=2000"`
}

// Normalize applies the same normalization as TaskCreate to the fields that are set.
func (in *TaskUpdate) Normalize() {
	if in.Title != nil {
		t := normalizeText(*in.Title)
		in.Title = &t
	}
	if in.Description != nil {
		d := normalizeText(*in.Description)
		in.Description = &d
	}
}

// Validate normalizes the input and checks the fields that are set.
func (in *TaskUpdate) Validate() error {
	in.Normalize()
	return toValidationError(validatorInstance.Struct(in))
}

// IsEmpty reports whether the update would change nothing.
func (in *TaskUpdate) IsEmpty() bool {
	return in.Title == nil && in.Description == nil
}

// Apply copies the set fields onto task.
func (in *TaskUpdate) Apply(task *Task) {
	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
}

// TaskRepository defines the contract for task storage.
// It lives in the domain because it's a requirement OF the domain, not
// of the database implementation.
type TaskRepository interface {
	// List returns every task ordered by ID ascending.
	List(ctx context.Context) ([]Task, error)

	// Get returns the task with the given ID or ErrNotFound.
	Get(ctx context.Context, id int64) (*Task, error)

	// Create stores a new task and returns it with its assigned ID and timestamps.
	Create(ctx context.Context, in TaskCreate) (*Task, error)

	// Update applies a partial update and returns the stored result, or ErrNotFound.
	Update(ctx context.Context, id int64, in TaskUpdate) (*Task, error)

	// Delete removes the task with the given ID, or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close(ctx context.Context) error
}

// TaskBatchCreator is implemented by stores that can create several tasks
// atomically: either every task is stored or none is.
type TaskBatchCreator interface {
	CreateBatch(ctx context.Context, in []TaskCreate) ([]Task, error)
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required", "min":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s).", label, fe.Tag())
	}
}
