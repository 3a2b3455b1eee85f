package shared

import (
	"errors"
	"io"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// ReadBody reads the full request body. A body cut off by
// http.MaxBytesReader is reported as a validation error so it surfaces as 400.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewValidationError("request", "", "request body too large")
		}
		return nil, err
	}
	return data, nil
}
