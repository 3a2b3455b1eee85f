package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
)

// taskIDParam is the chi path parameter holding the task ID.
const taskIDParam = "id"

// getPathTaskID extracts the task ID from the URL path.
// A missing or malformed ID yields an error wrapping domain.ErrInvalidID.
func getPathTaskID(r *http.Request) (uuid.UUID, error) {
	return domain.ParseTaskID(chi.URLParam(r, taskIDParam))
}

// parseListOptions reads the count and sort query parameters.
//
// count must be a non-negative integer; zero, absent and unparsable values
// mean no limit. Negative values fall outside that contract and are also
// treated as no limit rather than as a limit of |count|. sort=oldest orders
// ascending; any other value keeps the default newest-first order.
func parseListOptions(q url.Values) store.ListOptions {
	opts := store.ListOptions{Order: store.SortNewest}

	if n, err := strconv.Atoi(q.Get("count")); err == nil && n > 0 {
		opts.Limit = n
	}
	if q.Get("sort") == store.SortOldest.String() {
		opts.Order = store.SortOldest
	}
	return opts
}
