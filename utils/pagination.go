package utils

import (
	"net/http"
	"strconv"
)

// Pagination bounds. Out-of-range values are CLAMPED, never rejected:
// page below 1 becomes 1, pageSize outside [1, MaxPageSize] becomes the
// nearest bound. Documented behavior — applied identically everywhere.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParsePagination reads page/pageSize query parameters, applying
// defaults and clamping
func ParsePagination(r *http.Request) (page, pageSize int) {
	page = DefaultPage
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page = v
		}
	}
	if page < 1 {
		page = DefaultPage
	}

	pageSize = DefaultPageSize
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			pageSize = v
		}
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return page, pageSize
}
