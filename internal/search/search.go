// Package search indexes scanned pages in Elasticsearch and serves
// full-text page search.
package search

import (
	"context"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

// PageDocument is the indexed form of a scanned page.
type PageDocument struct {
	PageID          int64     `json:"page_id"`
	ContractorID    int64     `json:"contractor_id"`
	SessionID       int64     `json:"session_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title,omitempty"`
	MetaDescription string    `json:"meta_description,omitempty"`
	Content         string    `json:"content"`
	Keywords        []string  `json:"keywords,omitempty"`
	HTTPStatus      int       `json:"http_status,omitempty"`
	ViolationsCount int       `json:"violations_count"`
	ViolationWords  []string  `json:"violation_words,omitempty"`
	ScannedAt       time.Time `json:"scanned_at"`
}

// Query filters a page search.
type Query struct {
	Text           string
	ContractorID   *int64
	ViolationsOnly bool
	Params         pagination.Params
}

// Hit is one search result.
type Hit struct {
	PageID          int64     `json:"page_id"`
	ContractorID    int64     `json:"contractor_id"`
	SessionID       int64     `json:"session_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title,omitempty"`
	ViolationsCount int       `json:"violations_count"`
	ScannedAt       time.Time `json:"scanned_at"`
	Score           float64   `json:"score"`
	Highlights      []string  `json:"highlights,omitempty"`
}

// Index stores and queries page documents.
type Index interface {
	IndexPage(ctx context.Context, doc *PageDocument) error
	Search(ctx context.Context, q Query) (pagination.Page[Hit], error)
}

// NopIndex ignores writes and returns empty results. It is used when
// Elasticsearch is disabled.
type NopIndex struct{}

// IndexPage implements Index.
func (NopIndex) IndexPage(context.Context, *PageDocument) error { return nil }

// Search implements Index.
func (NopIndex) Search(_ context.Context, q Query) (pagination.Page[Hit], error) {
	return pagination.New([]Hit{}, q.Params, 0), nil
}
