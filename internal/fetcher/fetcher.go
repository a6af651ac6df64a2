// Package fetcher retrieves single pages over HTTP for the crawler.
// Failures are reported in the Result, never returned as errors, so one
// dead link cannot abort a run.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/retry"
)

const (
	defaultMaxRedirects = 10
	fetchAttempts       = 2
)

// Config controls request behaviour.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	RetryDelay        time.Duration
	MaxBodyBytes      int64
	MaxRedirects      int
	RequestsPerSecond float64
	RespectRobots     bool
}

// Result is the outcome of one fetch. HTTPStatus is nil when no response
// was received.
type Result struct {
	URL          string
	FinalURL     string
	Status       string
	HTTPStatus   *int
	ResponseTime float64
	ContentType  string
	Body         []byte
	Attempts     int
	Err          error
}

// OK reports whether the fetch produced a usable body.
func (r Result) OK() bool {
	return r.Status == models.PageStatusSuccess
}

// Fetcher performs GET requests with a per-request timeout, one retry on
// connection-level failures and per-host politeness.
type Fetcher struct {
	client  *http.Client
	cfg     Config
	robots  *RobotsChecker
	limiter *HostLimiter
	log     logger.Logger
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout and
// CheckRedirect are left as given.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// New creates a Fetcher.
func New(cfg Config, log logger.Logger, opts ...Option) *Fetcher {
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if log == nil {
		log = logger.NewNop()
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: RedirectPolicy(cfg.MaxRedirects),
		},
		cfg:     cfg,
		limiter: NewHostLimiter(cfg.RequestsPerSecond),
		log:     logger.Component(log, "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(f.client, cfg.UserAgent)
	}
	return f
}

// Allowed reports whether robots.txt permits fetching rawURL. It is always
// true when robots handling is off or robots.txt cannot be read.
func (f *Fetcher) Allowed(ctx context.Context, rawURL string) bool {
	if f.robots == nil {
		return true
	}
	ok, err := f.robots.Allowed(ctx, rawURL)
	if err != nil {
		f.log.Debug("Robots check failed", logger.String("url", rawURL), logger.Error(err))
		return true
	}
	if ok {
		if u, parseErr := url.Parse(rawURL); parseErr == nil {
			f.limiter.SlowDown(u.Host, f.robots.CrawlDelay(u.Scheme, u.Host))
		}
	}
	return ok
}

// Fetch retrieves rawURL. Non-2xx responses and transport failures yield a
// Result with status error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL, FinalURL: rawURL, Status: models.PageStatusError}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	attempts, err := retry.Do(ctx, retry.Config{
		MaxAttempts:  fetchAttempts,
		InitialDelay: f.cfg.RetryDelay,
		MaxDelay:     f.cfg.RetryDelay,
		IsRetryable:  retry.IsConnectionError,
	}, func(ctx context.Context) error {
		return f.do(ctx, rawURL, &res)
	})
	res.ResponseTime = time.Since(start).Seconds()
	res.Attempts = attempts

	if err != nil {
		res.Err = err
		res.Body = nil
		f.log.Debug("Fetch failed",
			logger.String("url", rawURL),
			logger.Int("attempts", attempts),
			logger.Error(err),
		)
		return res
	}

	if *res.HTTPStatus >= http.StatusOK && *res.HTTPStatus < http.StatusMultipleChoices {
		res.Status = models.PageStatusSuccess
	} else {
		res.Err = fmt.Errorf("http status %d", *res.HTTPStatus)
		res.Body = nil
	}
	return res
}

func (f *Fetcher) do(ctx context.Context, rawURL string, res *Result) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) {
			return fmt.Errorf("%s: %w", rawURL, ErrTooManyRedirects)
		}
		return err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if f.cfg.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	status := resp.StatusCode
	res.HTTPStatus = &status
	res.ContentType = strings.TrimSpace(resp.Header.Get("Content-Type"))
	res.Body = data
	if resp.Request != nil && resp.Request.URL != nil {
		res.FinalURL = resp.Request.URL.String()
	}
	return nil
}
