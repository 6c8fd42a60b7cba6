package domain

import "time"

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// OffsetPage carries a single page of results alongside the total number of matching items.
type OffsetPage[T any] struct {
	Items      []T
	TotalItems int
	Page       int
	Limit      int
}

// TotalPages reports how many pages of Limit items the result set spans.
func (p OffsetPage[T]) TotalPages() int {
	if p.Limit <= 0 || p.TotalItems <= 0 {
		return 0
	}
	return (p.TotalItems + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page after the current one exists.
func (p OffsetPage[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrev reports whether a page before the current one exists.
func (p OffsetPage[T]) HasPrev() bool {
	return p.Page > 1
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	Checks      map[string]SystemHealthCheck
	GeneratedAt time.Time
}
