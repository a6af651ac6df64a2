package matcher

import (
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
)

type cacheKey struct {
	pattern       string
	caseSensitive bool
}

// PatternCache memoises compiled rule patterns across runs.
type PatternCache struct {
	mu       sync.RWMutex
	compiled map[cacheKey]*regexp2.Regexp
}

var defaultCache = NewPatternCache()

// NewPatternCache returns an empty cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{compiled: make(map[cacheKey]*regexp2.Regexp)}
}

// Get returns the compiled pattern, compiling it on first use.
func (c *PatternCache) Get(pattern string, caseSensitive bool) (*regexp2.Regexp, error) {
	key := cacheKey{pattern: pattern, caseSensitive: caseSensitive}

	c.mu.RLock()
	re, ok := c.compiled[key]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := rules.CompilePattern(pattern, caseSensitive)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.compiled[key] = re
	c.mu.Unlock()
	return re, nil
}
