package shared

import (
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Page contains listing bounds parsed from the request query.
type Page struct {
	Page   int
	Limit  int
	Offset int
}

// PageFromRequest parses page/limit query params, clamping to sane bounds.
func PageFromRequest(r *http.Request) Page {
	page := parseIntParam(r, "page", defaultPage)
	if page < 1 {
		page = defaultPage
	}
	limit := parseIntParam(r, "limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Page{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, limit, total int) Pagination {
	if limit <= 0 {
		limit = defaultLimit
	}
	if page <= 0 {
		page = defaultPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}
