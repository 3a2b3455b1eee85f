package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/phrazzld/tasks-api/internal/domain"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrNotFound",
			err:      ErrNotFound,
			expected: true,
		},
		{
			name:     "ErrTaskNotFound",
			err:      ErrTaskNotFound,
			expected: true,
		},
		{
			name:     "wrapped ErrTaskNotFound",
			err:      fmt.Errorf("failed to find task: %w", ErrTaskNotFound),
			expected: true,
		},
		{
			name:     "StoreError wrapping ErrTaskNotFound",
			err:      NewStoreError("task", "get", "lookup failed", ErrTaskNotFound),
			expected: true,
		},
		{
			name:     "ErrInvalidEntity",
			err:      ErrInvalidEntity,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.expected {
				t.Errorf("IsNotFoundError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestInvalidEntity(t *testing.T) {
	verr := domain.NewValidationError(domain.TaskEntity, "title", "is required")
	err := InvalidEntity(verr)

	if !errors.Is(err, ErrInvalidEntity) {
		t.Error("expected error to match ErrInvalidEntity")
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Error("expected error to match domain.ErrValidation")
	}

	var got *domain.ValidationError
	if !errors.As(err, &got) {
		t.Fatal("expected errors.As to find the ValidationError")
	}
	if got != verr {
		t.Errorf("errors.As returned %v, want %v", got, verr)
	}
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      *StoreError
		expected string
	}{
		{
			name:     "with wrapped error",
			err:      NewStoreError("task", "create", "insert failed", errors.New("boom")),
			expected: "create operation on task failed: insert failed: boom",
		},
		{
			name:     "without wrapped error",
			err:      NewStoreError("task", "list", "scan failed", nil),
			expected: "list operation on task failed: scan failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSortOrderString(t *testing.T) {
	if SortOldest.String() != "oldest" {
		t.Errorf("SortOldest.String() = %q", SortOldest.String())
	}
	if SortNewest.String() != "newest" {
		t.Errorf("SortNewest.String() = %q", SortNewest.String())
	}
}
