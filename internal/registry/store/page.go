package store

import "fmt"

const (
	// MaxPageLimit is the largest page size any list operation accepts.
	MaxPageLimit = 100
	// DefaultPageLimit is used when the caller does not ask for a page size.
	DefaultPageLimit = 20
)

// PageRequest is a validated 1-based page number and page size.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest validates page >= 1 and 1 <= limit <= MaxPageLimit.
func NewPageRequest(page, limit int) (PageRequest, error) {
	if page < 1 {
		return PageRequest{}, &ValidationError{Field: "page", Message: fmt.Sprintf("must be >= 1, got %d", page)}
	}
	if limit < 1 || limit > MaxPageLimit {
		return PageRequest{}, &ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d, got %d", MaxPageLimit, limit)}
	}
	return PageRequest{Page: page, Limit: limit}, nil
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Window is the number of leading rows needed to materialise this page.
func (p PageRequest) Window() int {
	return p.Offset() + p.Limit
}

// PageInfo is the pagination metadata returned with counted list results.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageInfo derives page counts from the total number of rows.
func NewPageInfo(p PageRequest, total int64) PageInfo {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PageInfo{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
