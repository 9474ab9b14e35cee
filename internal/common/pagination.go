package common

import (
	"net/http"
	"strconv"
)

// Pagination is the list-response envelope metadata.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// ParseLimit reads the "limit" query parameter, clamping to [1, max] and
// using def when absent or malformed.
func ParseLimit(r *http.Request, def, max int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	switch {
	case err != nil || limit <= 0:
		return def
	case limit > max:
		return max
	default:
		return limit
	}
}

// ParsePagination reads "page" and "limit" query parameters, defaulting to
// page 1 and the supplied page size.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page, perPage = 1, defaultPerPage
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		perPage = l
	}
	return page, perPage
}
