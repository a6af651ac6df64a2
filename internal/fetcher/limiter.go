package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces requests per host. Each host gets its own token
// bucket; robots.txt crawl-delay can slow a host further.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
}

// NewHostLimiter creates a limiter allowing rps requests per second per
// host. A non-positive rps disables limiting.
func NewHostLimiter(rps float64) *HostLimiter {
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
	}
}

// Wait blocks until a request to rawURL's host may proceed or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil || h.rps <= 0 {
		return nil
	}
	lim := h.limiterFor(hostOf(rawURL))
	return lim.Wait(ctx)
}

// SlowDown caps a host at one request per delay when that is stricter
// than the configured rate.
func (h *HostLimiter) SlowDown(host string, delay time.Duration) {
	if h == nil || h.rps <= 0 || delay <= 0 {
		return
	}
	lim := h.limiterFor(strings.ToLower(host))
	if every := rate.Every(delay); every < lim.Limit() {
		lim.SetLimit(every)
	}
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(h.rps), 1)
		h.limiters[host] = lim
	}
	return lim
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
