package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/redact"
	"github.com/phrazzld/tasks-api/internal/store"
)

// User-facing error messages.
const (
	// MsgTaskNotFound is returned for unknown and malformed task IDs alike.
	MsgTaskNotFound = "Cannot find given id"
	MsgInvalidTask  = "Invalid task data"
	MsgUnexpected   = "An unexpected error occurred"
)

// ClassifyError maps an error raised while serving a request to an HTTP
// status code and a message that is safe to return to the client.
//
// Malformed IDs are reported exactly like missing tasks so clients cannot
// tell the two apart.
func ClassifyError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, MsgUnexpected
	}

	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, MsgTaskNotFound

	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, MsgInvalidTask

	default:
		msg := redact.Error(err)
		if msg == "" {
			msg = MsgUnexpected
		}
		return http.StatusInternalServerError, msg
	}
}

// HandleAPIError classifies err and writes the matching JSON error response.
// Validation failures are logged at WARN, other client errors at DEBUG and
// server errors at ERROR.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := ClassifyError(err)

	var opts []shared.ResponseOption
	if status == http.StatusBadRequest {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}
