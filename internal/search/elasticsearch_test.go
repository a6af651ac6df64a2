package search_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handle(w, r)
}

func (f *fakeES) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newIndex(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*search.ElasticIndex, *fakeES) {
	t.Helper()

	fake := &fakeES{handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := es.NewClient(es.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return search.NewElasticIndex(client, "huginn_pages", nil), fake
}

func TestElasticIndex_IndexPage(t *testing.T) {
	t.Parallel()

	idx, fake := newIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	})

	err := idx.IndexPage(context.Background(), &search.PageDocument{
		PageID:          42,
		ContractorID:    5,
		URL:             "https://acme.test/about",
		Content:         "about acme",
		ViolationsCount: 1,
		ScannedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/huginn_pages/_doc/42", reqs[0].path)
	assert.Contains(t, reqs[0].body, `"url":"https://acme.test/about"`)
}

func TestElasticIndex_IndexPageError(t *testing.T) {
	t.Parallel()

	idx, _ := newIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"mapper_parsing_exception"}`)
	})

	err := idx.IndexPage(context.Background(), &search.PageDocument{PageID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index page 1")
}

func TestElasticIndex_EnsureIndexCreatesMissing(t *testing.T) {
	t.Parallel()

	idx, fake := newIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	})

	require.NoError(t, idx.EnsureIndex(context.Background()))

	reqs := fake.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[1].method)
	assert.Equal(t, "/huginn_pages", reqs[1].path)
	assert.Contains(t, reqs[1].body, `"violations_count"`)
}

func TestElasticIndex_EnsureIndexExisting(t *testing.T) {
	t.Parallel()

	idx, fake := newIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, idx.EnsureIndex(context.Background()))
	assert.Len(t, fake.recorded(), 1)
}

func TestElasticIndex_Search(t *testing.T) {
	t.Parallel()

	idx, fake := newIndex(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{
			"hits": {
				"total": {"value": 21},
				"hits": [{
					"_score": 2.5,
					"_source": {"page_id": 7, "contractor_id": 5, "session_id": 3, "url": "https://acme.test/", "title": "Acme", "violations_count": 2},
					"highlight": {"content": ["online <em>casino</em>"]}
				}]
			}
		}`)
	})

	contractorID := int64(5)
	page, err := idx.Search(context.Background(), search.Query{
		Text:           "casino",
		ContractorID:   &contractorID,
		ViolationsOnly: true,
		Params:         pagination.Params{Page: 2, PageSize: 10},
	})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(7), page.Items[0].PageID)
	assert.Equal(t, []string{"online <em>casino</em>"}, page.Items[0].Highlights)
	assert.Equal(t, 21, page.Pagination.TotalItems)
	assert.Equal(t, 3, page.Pagination.TotalPages)

	reqs := fake.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/huginn_pages/_search", reqs[0].path)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].body), &body))
	filter := body["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	assert.Len(t, filter, 2)
}

func TestNopIndex(t *testing.T) {
	t.Parallel()

	var idx search.Index = search.NopIndex{}
	require.NoError(t, idx.IndexPage(context.Background(), &search.PageDocument{}))

	page, err := idx.Search(context.Background(), search.Query{Params: pagination.Default()})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Pagination.TotalItems)
}
