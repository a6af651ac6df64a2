package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	robotsPath         = "/robots.txt"
	robotsMaxBodyBytes = 512 * 1024
	robotsCacheTTL     = time.Hour
)

type robotsEntry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
}

// RobotsChecker answers whether a URL may be crawled under its host's
// robots.txt. Files are fetched lazily and cached per scheme and host.
// A missing, unreadable or non-2xx robots.txt allows everything.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
}

// NewRobotsChecker creates a checker that identifies itself as userAgent.
func NewRobotsChecker(client *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		ttl:       robotsCacheTTL,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("robots: parse url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("robots: no host in %q", rawURL)
	}

	group := r.groupFor(ctx, u.Scheme, strings.ToLower(u.Host))
	if group == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path), nil
}

// CrawlDelay returns the crawl-delay declared for the host, or zero.
func (r *RobotsChecker) CrawlDelay(scheme, host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[cacheKey(scheme, strings.ToLower(host))]
	if !ok || entry.group == nil {
		return 0
	}
	return entry.group.CrawlDelay
}

func (r *RobotsChecker) groupFor(ctx context.Context, scheme, host string) *robotstxt.Group {
	key := cacheKey(scheme, host)

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < r.ttl {
		return entry.group
	}

	entry = robotsEntry{group: r.fetch(ctx, scheme, host), fetchedAt: time.Now()}

	r.mu.Lock()
	r.cache[key] = entry
	r.mu.Unlock()

	return entry.group
}

// fetch downloads and parses robots.txt. A nil group means allow all.
func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) *robotstxt.Group {
	if scheme == "" {
		scheme = "https"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+host+robotsPath, http.NoBody)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBodyBytes))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data.FindGroup(r.userAgent)
}

func cacheKey(scheme, host string) string {
	return scheme + "://" + host
}
