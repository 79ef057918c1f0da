package request

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Pagination holds the parsed limit and cursor query parameters.
type Pagination struct {
	Limit  int
	Cursor string
}

// ParsePagination reads limit and cursor from the query string. A missing,
// malformed, or non-positive limit falls back to the default, and the limit
// is capped so a single page stays bounded.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()

	limit := defaultPageLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	return Pagination{Limit: limit, Cursor: q.Get("cursor")}
}
