package frontier

// Entry is a URL waiting to be fetched.
type Entry struct {
	URL   string
	Depth int
}

// Frontier is the breadth-first queue of one crawl run. It is owned by a
// single goroutine and is not safe for concurrent use.
type Frontier struct {
	domain   string
	maxDepth int
	queue    []Entry
	seen     map[string]struct{}
}

// New creates an empty frontier restricted to domain and maxDepth.
func New(domain string, maxDepth int) *Frontier {
	return &Frontier{
		domain:   domain,
		maxDepth: maxDepth,
		seen:     make(map[string]struct{}),
	}
}

// Push enqueues rawURL at depth unless it is malformed, off-site, deeper
// than the limit, or was already seen in this run. It reports whether the
// URL was added.
func (f *Frontier) Push(rawURL string, depth int) bool {
	if depth < 0 || depth > f.maxDepth {
		return false
	}
	normalized, err := NormalizeURL(rawURL)
	if err != nil || !SameSite(normalized, f.domain) {
		return false
	}
	if _, ok := f.seen[normalized]; ok {
		return false
	}
	f.seen[normalized] = struct{}{}
	f.queue = append(f.queue, Entry{URL: normalized, Depth: depth})
	return true
}

// Pop dequeues the oldest entry.
func (f *Frontier) Pop() (Entry, bool) {
	if len(f.queue) == 0 {
		return Entry{}, false
	}
	e := f.queue[0]
	f.queue[0] = Entry{}
	f.queue = f.queue[1:]
	return e, true
}

// Len is the number of queued entries.
func (f *Frontier) Len() int { return len(f.queue) }

// Seen is the number of distinct URLs ever accepted.
func (f *Frontier) Seen() int { return len(f.seen) }
