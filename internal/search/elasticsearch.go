package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const (
	pingTimeout       = 5 * time.Second
	highlightFragment = 160
	maxHighlights     = 3
)

// ElasticIndex stores page documents in a single Elasticsearch index.
type ElasticIndex struct {
	client *es.Client
	index  string
	log    logger.Logger
}

// NewClient creates an Elasticsearch client and verifies the connection.
func NewClient(ctx context.Context, cfg config.ElasticsearchConfig) (*es.Client, error) {
	address := cfg.URL
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	client, err := es.NewClient(es.Config{Addresses: []string{address}})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		return nil, fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("ping elasticsearch: %s", res.String())
	}
	return client, nil
}

// NewElasticIndex wraps client for the named index.
func NewElasticIndex(client *es.Client, index string, log logger.Logger) *ElasticIndex {
	if log == nil {
		log = logger.NewNop()
	}
	return &ElasticIndex{client: client, index: index, log: logger.Component(log, "search")}
}

// EnsureIndex creates the page index with its mapping when it is missing.
func (x *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.index}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", x.index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(pageMapping())
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	res, err = x.client.Indices.Create(
		x.index,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", x.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.index, res.String())
	}

	x.log.Info("Created page index", logger.String("index", x.index))
	return nil
}

// IndexPage upserts doc keyed by its page ID.
func (x *ElasticIndex) IndexPage(ctx context.Context, doc *PageDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal page document: %w", err)
	}

	res, err := x.client.Index(
		x.index,
		bytes.NewReader(body),
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(strconv.FormatInt(doc.PageID, 10)),
	)
	if err != nil {
		return fmt.Errorf("index page %d: %w", doc.PageID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index page %d: %s", doc.PageID, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     float64             `json:"_score"`
			Source    PageDocument        `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a full-text query over title, description and content.
func (x *ElasticIndex) Search(ctx context.Context, q Query) (pagination.Page[Hit], error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return pagination.Page[Hit]{}, fmt.Errorf("marshal query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
		x.client.Search.WithFrom(q.Params.Offset()),
		x.client.Search.WithSize(q.Params.Limit()),
		x.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return pagination.Page[Hit]{}, fmt.Errorf("search pages: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return pagination.Page[Hit]{}, fmt.Errorf("search pages: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return pagination.Page[Hit]{}, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			PageID:          h.Source.PageID,
			ContractorID:    h.Source.ContractorID,
			SessionID:       h.Source.SessionID,
			URL:             h.Source.URL,
			Title:           h.Source.Title,
			ViolationsCount: h.Source.ViolationsCount,
			ScannedAt:       h.Source.ScannedAt,
			Score:           h.Score,
			Highlights:      h.Highlight["content"],
		})
	}
	return pagination.New(hits, q.Params, parsed.Hits.Total.Value), nil
}

func buildQuery(q Query) map[string]any {
	var must []any
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": []string{"title^3", "meta_description^2", "content", "violation_words^2"},
			},
		})
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	var filter []any
	if q.ContractorID != nil {
		filter = append(filter, map[string]any{"term": map[string]any{"contractor_id": *q.ContractorID}})
	}
	if q.ViolationsOnly {
		filter = append(filter, map[string]any{"range": map[string]any{"violations_count": map[string]any{"gt": 0}}})
	}

	boolQuery := map[string]any{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"sort":  []any{"_score", map[string]any{"scanned_at": "desc"}},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content": map[string]any{
					"fragment_size":       highlightFragment,
					"number_of_fragments": maxHighlights,
				},
			},
		},
	}
}

func pageMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"page_id":          map[string]any{"type": "long"},
				"contractor_id":    map[string]any{"type": "long"},
				"session_id":       map[string]any{"type": "long"},
				"url":              map[string]any{"type": "keyword"},
				"title":            map[string]any{"type": "text"},
				"meta_description": map[string]any{"type": "text"},
				"content":          map[string]any{"type": "text"},
				"keywords":         map[string]any{"type": "keyword"},
				"http_status":      map[string]any{"type": "integer"},
				"violations_count": map[string]any{"type": "integer"},
				"violation_words":  map[string]any{"type": "keyword"},
				"scanned_at":       map[string]any{"type": "date"},
			},
		},
	}
}
