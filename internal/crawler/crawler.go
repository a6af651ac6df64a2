//go:generate mockgen -destination=../testutils/mocks/crawler/mock_sink.go -package=crawler github.com/jonesrussell/north-cloud/huginn/internal/crawler Sink,Fetcher

// Package crawler walks one contractor site breadth-first. A single
// goroutine owns the frontier while a bounded pool of workers fetches,
// extracts and matches pages and hands each result to a Sink.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/huginn/internal/classifier"
	"github.com/jonesrussell/north-cloud/huginn/internal/extractor"
	"github.com/jonesrussell/north-cloud/huginn/internal/fetcher"
	"github.com/jonesrussell/north-cloud/huginn/internal/frontier"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/matcher"
)

const defaultWorkers = 5

var (
	// ErrRootUnreachable means the first page of a run got no HTTP response.
	ErrRootUnreachable = errors.New("root page unreachable")
	// ErrRootDisallowed means robots.txt forbids the first page of a run.
	ErrRootDisallowed = errors.New("root page disallowed by robots.txt")
)

// Fetcher retrieves pages. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) fetcher.Result
	Allowed(ctx context.Context, rawURL string) bool
}

// Sink receives every scanned page. It is called from worker goroutines
// and must be safe for concurrent use. An error is logged and the crawl
// goes on.
type Sink interface {
	PageScanned(ctx context.Context, page *PageResult) error
}

// Target describes the site to crawl.
type Target struct {
	ContractorID int64
	Domain       string
	RootURL      string
	MaxPages     int
	MaxDepth     int
	Tags         []string
}

// PageResult is one fetched page with what was found on it.
type PageResult struct {
	URL             string
	Depth           int
	Fetch           fetcher.Result
	Title           *string
	MetaDescription *string
	Text            string
	Keywords        []string
	Matches         []matcher.Match
}

// Summary totals a finished crawl.
type Summary struct {
	PagesScanned        int
	PagesWithViolations int
	TotalViolations     int
	PagesSkipped        int
	// URLsDiscovered counts distinct same-site URLs accepted into the queue.
	URLsDiscovered int
	Classification *classifier.Result
	Cancelled      bool
}

// Crawler runs crawls. One Crawler may serve many runs concurrently.
type Crawler struct {
	fetcher Fetcher
	workers int
	log     logger.Logger
}

// New creates a Crawler with the given number of fetch workers per run.
func New(f Fetcher, workers int, log logger.Logger) *Crawler {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Crawler{fetcher: f, workers: workers, log: logger.Component(log, "crawler")}
}

type outcome struct {
	entry   frontier.Entry
	page    *PageResult
	links   []string
	skipped bool
	aborted bool
	sinkErr error
}

type run struct {
	c       *Crawler
	target  Target
	matcher *matcher.Matcher
	sink    Sink
	log     logger.Logger
}

// Run crawls target until the frontier is empty, MaxPages pages have been
// scanned, or ctx is done. Pages are matched with m as they arrive and
// the union of their text is classified with cls once at the end.
//
// The returned Summary is never nil. A non-nil error means the run could
// not proceed past its root page.
func (c *Crawler) Run(
	ctx context.Context,
	target Target,
	m *matcher.Matcher,
	cls *classifier.Classifier,
	sink Sink,
) (*Summary, error) {
	r := &run{
		c:       c,
		target:  target,
		matcher: m,
		sink:    sink,
		log:     c.log.With(logger.Int64("contractor_id", target.ContractorID)),
	}
	return r.execute(ctx, cls)
}

func (r *run) execute(ctx context.Context, cls *classifier.Classifier) (*Summary, error) {
	summary := &Summary{}

	fr := frontier.New(r.target.Domain, r.target.MaxDepth)
	root := r.target.RootURL
	if root == "" {
		root = "https://" + r.target.Domain + "/"
	}
	if !fr.Push(root, 0) {
		return summary, fmt.Errorf("%w: invalid root url %q", ErrRootUnreachable, root)
	}

	jobs := make(chan frontier.Entry, r.c.workers)
	results := make(chan outcome, r.c.workers)
	done := make(chan struct{})
	for range r.c.workers {
		go func() {
			for e := range jobs {
				results <- r.process(ctx, e)
			}
			done <- struct{}{}
		}()
	}
	defer func() {
		close(jobs)
		for range r.c.workers {
			<-done
		}
	}()

	var (
		text     strings.Builder
		keywords []string
		inFlight int
		claimed  int
		rootErr  error
	)

	for {
		for inFlight < r.c.workers && claimed < r.target.MaxPages && ctx.Err() == nil {
			e, ok := fr.Pop()
			if !ok {
				break
			}
			jobs <- e
			inFlight++
			claimed++
		}
		if inFlight == 0 {
			break
		}

		out := <-results
		inFlight--

		isRoot := out.entry.Depth == 0
		switch {
		case out.aborted:
			claimed--
			continue
		case out.skipped:
			claimed--
			summary.PagesSkipped++
			if isRoot {
				rootErr = ErrRootDisallowed
			}
			continue
		}

		summary.PagesScanned++
		if n := len(out.page.Matches); n > 0 {
			summary.PagesWithViolations++
			summary.TotalViolations += n
		}
		if out.sinkErr != nil {
			r.log.Error("Failed to record page",
				logger.String("url", out.page.URL),
				logger.Error(out.sinkErr),
			)
		}

		if isRoot && out.page.Fetch.HTTPStatus == nil {
			rootErr = fmt.Errorf("%w: %s: %w", ErrRootUnreachable, out.page.URL, out.page.Fetch.Err)
		}
		if !out.page.Fetch.OK() {
			continue
		}

		if out.page.Text != "" {
			text.WriteString(out.page.Text)
			text.WriteByte('\n')
		}
		keywords = append(keywords, out.page.Keywords...)

		if out.entry.Depth < r.target.MaxDepth {
			for _, link := range out.links {
				fr.Push(link, out.entry.Depth+1)
			}
		}
	}

	summary.Cancelled = ctx.Err() != nil
	summary.URLsDiscovered = fr.Seen()
	if rootErr != nil {
		return summary, rootErr
	}

	if cls != nil && summary.PagesScanned > 0 {
		tags := append(append([]string{}, r.target.Tags...), keywords...)
		summary.Classification = cls.Classify(text.String(), tags)
	}

	r.log.Info("Crawl finished",
		logger.Int("pages_scanned", summary.PagesScanned),
		logger.Int("pages_with_violations", summary.PagesWithViolations),
		logger.Int("total_violations", summary.TotalViolations),
		logger.Int("pages_skipped", summary.PagesSkipped),
		logger.Int("urls_discovered", summary.URLsDiscovered),
		logger.Bool("cancelled", summary.Cancelled),
	)
	return summary, nil
}

// process runs on a worker goroutine.
func (r *run) process(ctx context.Context, e frontier.Entry) outcome {
	out := outcome{entry: e}

	if ctx.Err() != nil {
		out.aborted = true
		return out
	}
	if !r.c.fetcher.Allowed(ctx, e.URL) {
		out.skipped = true
		return out
	}

	res := r.c.fetcher.Fetch(ctx, e.URL)
	if !res.OK() && ctx.Err() != nil {
		out.aborted = true
		return out
	}

	page := &PageResult{URL: e.URL, Depth: e.Depth, Fetch: res}
	if res.OK() {
		base, _ := url.Parse(res.FinalURL)
		content := extractor.Extract(res.Body, res.ContentType, base)
		page.Title = content.Title
		page.MetaDescription = content.MetaDescription
		page.Text = content.Text
		page.Keywords = content.Keywords
		if r.matcher != nil {
			page.Matches = r.matcher.Match(content.Text)
		}
		out.links = content.Links
	}
	// The body is not needed past extraction.
	page.Fetch.Body = nil
	out.page = page

	if r.sink != nil {
		out.sinkErr = r.sink.PageScanned(context.WithoutCancel(ctx), page)
	}
	return out
}
