// Package pagination parses page/limit/sort query parameters and renders the pagination block of list
// responses.
package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage bounds (page-1)*limit to an offset Firestore accepts.
	MaxPage = 10000
)

var (
	ErrInvalidPage      = errors.New("pagination: invalid page")
	ErrInvalidLimit     = errors.New("pagination: invalid limit")
	ErrInvalidSortBy    = errors.New("pagination: invalid sortBy")
	ErrInvalidSortOrder = errors.New("pagination: invalid sortOrder")
)

// Params is the normalised paging and ordering request.
type Params struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// SortOrder renders the direction as "asc" or "desc".
func (p Params) SortOrder() string {
	if p.SortDesc {
		return "desc"
	}
	return "asc"
}

// Options bounds what Parse accepts.
type Options struct {
	DefaultLimit      int
	MaxLimit          int
	AllowedSortFields []string
	DefaultSortBy     string
	// DefaultSortDesc applies when the request omits sortOrder.
	DefaultSortDesc bool
}

// Parse reads page, limit, sortBy and sortOrder. Pages and limits above their maximum are clamped rather than rejected.
func Parse(values url.Values, opts Options) (Params, error) {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	defaultLimit = min(defaultLimit, maxLimit)

	params := Params{Page: 1, Limit: defaultLimit, SortBy: opts.DefaultSortBy, SortDesc: opts.DefaultSortDesc}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidPage)
		}
		params.Page = min(page, MaxPage)
	}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return Params{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidLimit)
		}
		params.Limit = min(limit, maxLimit)
	}

	if raw := strings.TrimSpace(values.Get("sortBy")); raw != "" {
		if !contains(opts.AllowedSortFields, raw) {
			return Params{}, fmt.Errorf("%w: field %q is not sortable", ErrInvalidSortBy, raw)
		}
		params.SortBy = raw
	}

	switch strings.ToLower(strings.TrimSpace(values.Get("sortOrder"))) {
	case "":
	case "asc", "1":
		params.SortDesc = false
	case "desc", "-1":
		params.SortDesc = true
	default:
		return Params{}, fmt.Errorf("%w: must be asc or desc", ErrInvalidSortOrder)
	}

	return params, nil
}

func contains(values []string, needle string) bool {
	for _, v := range values {
		if v == needle {
			return true
		}
	}
	return false
}

// Meta is the pagination block attached to list responses.
type Meta struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewMeta derives the block for a page of limit items out of total.
func NewMeta(page, limit, total int) Meta {
	pages := 0
	if limit > 0 && total > 0 {
		pages = (total + limit - 1) / limit
	}
	return Meta{
		CurrentPage: page,
		TotalPages:  pages,
		TotalItems:  total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
