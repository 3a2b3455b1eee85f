package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceAddsTraceIDAndLogger(t *testing.T) {
	log, buf := logger.NewTestLogger()

	var seenTraceID string
	var hasLogger bool
	handler := Trace(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTraceID = shared.GetTraceID(r.Context())
		hasLogger = logger.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	require.NotEmpty(t, seenTraceID)
	assert.True(t, hasLogger)
	assert.Equal(t, seenTraceID, w.Header().Get(TraceHeader))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "request started", entries[0]["msg"])
	assert.Equal(t, "request completed", entries[1]["msg"])
	assert.Equal(t, float64(http.StatusTeapot), entries[1]["status"])
	assert.Equal(t, seenTraceID, entries[1]["trace_id"])
}

func TestTraceReusesChiRequestID(t *testing.T) {
	log, _ := logger.NewTestLogger()

	var seenTraceID, reqID string
	handler := chimw.RequestID(Trace(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTraceID = shared.GetTraceID(r.Context())
		reqID = chimw.GetReqID(r.Context())
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks", nil))

	require.NotEmpty(t, reqID)
	assert.Equal(t, reqID, seenTraceID)
}

func TestTraceDefaultsStatusToOK(t *testing.T) {
	log, buf := logger.NewTestLogger()
	handler := Trace(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/tasks/1", nil))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(http.StatusOK), entries[1]["status"])
}
