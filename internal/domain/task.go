package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TaskEntity is the entity name used in task validation messages.
const TaskEntity = "task"

// Task represents a single to-do item.
//
// ID and CreatedAt are assigned by the store when the task is created and
// never change afterwards. Title, Description and Done are mutable.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"                 validate:"required"`
	Description string    `json:"description,omitempty"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"createdAt"`
}

var validate = newValidator()

// newValidator returns a validator that reports fields by their JSON names,
// so messages match what API clients sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// NewTask builds a task from client-supplied fields, applies defaults and
// validates the result. The returned task has no ID or CreatedAt yet.
func NewTask(fields TaskFields) (*Task, error) {
	task := &Task{}
	task.Apply(fields)
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Apply overwrites the fields present in f and leaves the others unchanged.
func (t *Task) Apply(f TaskFields) {
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Done != nil {
		t.Done = *f.Done
	}
}

// Validate checks the task against the schema rules.
// It returns a *ValidationError describing every failing field.
func (t *Task) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate task: %w", err)
	}

	ve := &ValidationError{Entity: TaskEntity}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Message: tagMessage(fe),
		})
	}
	return ve
}

// tagMessage maps validation tags to user-friendly messages.
func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// ParseTaskID parses a task identifier. Malformed input yields an error
// wrapping ErrInvalidID.
func ParseTaskID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: empty", ErrInvalidID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}
