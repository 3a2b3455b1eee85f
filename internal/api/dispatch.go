package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
)

// Response is the successful result of a HandlerFunc.
type Response struct {
	Status int
	// Body is encoded as JSON. A nil Body produces an empty response body.
	Body interface{}
}

// JSON returns a Response carrying body.
func JSON(status int, body interface{}) *Response {
	return &Response{Status: status, Body: body}
}

// Empty returns a Response with no body.
func Empty(status int) *Response {
	return &Response{Status: status}
}

// HandlerFunc serves a request by returning either a Response or an error.
// It must not write to the ResponseWriter.
type HandlerFunc func(r *http.Request) (*Response, error)

// ErrPanic wraps a recovered handler panic.
var ErrPanic = errors.New("handler panicked")

// Wrap adapts h to an http.HandlerFunc. Failures, whether returned or
// panicked, are classified once by HandleAPIError. The response body is
// fully encoded before the status line is written, so a body that cannot be
// encoded becomes a 500 instead of a truncated success.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := invoke(h, r)
		if err != nil {
			HandleAPIError(w, r, err)
			return
		}

		if resp == nil {
			resp = Empty(http.StatusNoContent)
		}
		if resp.Body == nil {
			shared.RespondEmpty(w, resp.Status)
			return
		}

		shared.RespondWithJSON(w, r, resp.Status, resp.Body)
	}
}

// invoke calls h and converts a panic into an error.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func invoke(h HandlerFunc, r *http.Request) (resp *Response, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}

		logger.FromContextOrDefault(r.Context(), nil).Error("recovered handler panic",
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())))

		resp = nil
		if perr, ok := rec.(error); ok {
			err = fmt.Errorf("%w: %w", ErrPanic, perr)
		} else {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return h(r)
}
