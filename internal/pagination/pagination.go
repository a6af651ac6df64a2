// Package pagination implements the list envelope shared by every listing
// endpoint: 1-indexed pages, page sizes between 1 and MaxPageSize.
package pagination

import (
	"errors"
	"strconv"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	ErrInvalidPage     = errors.New("page must be an integer >= 1")
	ErrInvalidPageSize = errors.New("page_size must be an integer between 1 and 100")
)

// Params selects one page of a listing.
type Params struct {
	Page     int
	PageSize int
}

// Default returns page 1 with the default page size.
func Default() Params {
	return Params{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Parse validates raw query values. Empty strings take the defaults.
func Parse(page, pageSize string) (Params, error) {
	p := Default()
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Params{}, ErrInvalidPage
		}
		p.Page = n
	}
	if pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil || n < 1 || n > MaxPageSize {
			return Params{}, ErrInvalidPageSize
		}
		p.PageSize = n
	}
	return p, nil
}

// Limit is the SQL LIMIT for the page.
func (p Params) Limit() int { return p.PageSize }

// Offset is the SQL OFFSET for the page.
func (p Params) Offset() int { return (p.Page - 1) * p.PageSize }

// Info is the "pagination" object of the envelope.
type Info struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewInfo derives page counts from the total item count.
func NewInfo(p Params, totalItems int) Info {
	totalPages := 0
	if p.PageSize > 0 {
		totalPages = (totalItems + p.PageSize - 1) / p.PageSize
	}
	return Info{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// Page is the list envelope.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Pagination Info `json:"pagination"`
}

// New wraps items into an envelope. Items is never serialised as null.
func New[T any](items []T, p Params, totalItems int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: NewInfo(p, totalItems)}
}

// Map converts the items of a page while keeping its pagination.
func Map[T, U any](in Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(in.Items))
	for i, item := range in.Items {
		out[i] = fn(item)
	}
	return Page[U]{Items: out, Pagination: in.Pagination}
}
