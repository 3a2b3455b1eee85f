package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apiMiddleware "github.com/phrazzld/tasks-api/internal/api/middleware"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unreachableStore struct {
	*memory.TaskStore
}

func (unreachableStore) Ping(context.Context) error { return errors.New("connection refused") }

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{Port: 8080, LogLevel: "debug", MaxBodyBytes: 1 << 10}
}

func TestRouterHealth(t *testing.T) {
	log, _ := logger.NewTestLogger()

	t.Run("store reachable", func(t *testing.T) {
		router := newRouter(testServerConfig(), memory.NewTaskStore(), log)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("store unreachable", func(t *testing.T) {
		router := newRouter(testServerConfig(), unreachableStore{memory.NewTaskStore()}, log)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var body struct {
			Message string `json:"message"`
			TraceID string `json:"trace_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "store unavailable", body.Message)
		assert.Equal(t, w.Header().Get(apiMiddleware.TraceHeader), body.TraceID)
	})
}

func TestRouterTaskLifecycle(t *testing.T) {
	log, _ := logger.NewTestLogger()
	srv := httptest.NewServer(newRouter(testServerConfig(), memory.NewTaskStore(), log))
	t.Cleanup(srv.Close)
	client := srv.Client()

	resp, err := client.Post(srv.URL+"/tasks", "application/json", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, err)
	var created struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Done      bool   `json:"done"`
		CreatedAt string `json:"createdAt"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(apiMiddleware.TraceHeader))
	assert.Equal(t, "x", created.Title)
	assert.False(t, created.Done)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.CreatedAt)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/tasks/"+created.ID, strings.NewReader(`{"done":true}`))
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/tasks/"+created.ID, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/tasks/" + created.ID)
	require.NoError(t, err)
	var body struct {
		Message string `json:"message"`
		TraceID string `json:"trace_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Cannot find given id", body.Message)
	assert.Equal(t, resp.Header.Get(apiMiddleware.TraceHeader), body.TraceID)
}

func TestRouterRequestSizeLimit(t *testing.T) {
	log, _ := logger.NewTestLogger()
	cfg := testServerConfig()
	router := newRouter(cfg, memory.NewTaskStore(), log)

	// {"title":"..."} adds 12 bytes around the title
	tests := []struct {
		name           string
		titleLen       int
		expectedStatus int
	}{
		{name: "at the limit", titleLen: int(cfg.MaxBodyBytes) - 12, expectedStatus: http.StatusCreated},
		{name: "over the limit", titleLen: int(cfg.MaxBodyBytes) * 2, expectedStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := `{"title":"` + strings.Repeat("a", tc.titleLen) + `"}`
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(body)))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedStatus == http.StatusBadRequest {
				assert.Contains(t, w.Body.String(), "request body too large")
			}
		})
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	log, _ := logger.NewTestLogger()
	router := newRouter(testServerConfig(), memory.NewTaskStore(), log)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/tasks/abc", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
