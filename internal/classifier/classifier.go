// Package classifier estimates a contractor's merchant category code from
// the text of its scanned pages and its tag set.
//
// For every active profile:
//
//	keyword_score = distinct profile keywords found in the text * keyword_weight
//	tag_score     = profile tags present in the contractor tag set * tag_weight
//	raw           = keyword_score + tag_score
//	probability   = raw / (raw + 1)
//
// The best profile wins only when its probability reaches its own
// min_probability. Equal probabilities resolve to the lowest code.
package classifier

import (
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

// Result is the chosen classification.
type Result struct {
	Code        string  `json:"code"`
	Probability float64 `json:"probability"`
}

// Score is the evaluation of a single profile.
type Score struct {
	Code            string
	MatchedKeywords int
	MatchedTags     int
	Raw             float64
	Probability     float64
	MinProbability  float64
}

// Classifier scores text against a fixed set of profiles. Keyword lookup is
// a single Aho-Corasick pass over the text.
type Classifier struct {
	profiles []models.MCCCode

	// ac mutates internal state during Match.
	mu        sync.Mutex
	ac        *ahocorasick.Matcher
	keywords  []string
	kwToProfs map[int][]int
}

// New builds the automaton from the active profiles.
func New(profiles []models.MCCCode) *Classifier {
	c := &Classifier{kwToProfs: make(map[int][]int)}
	index := make(map[string]int)

	for _, p := range profiles {
		if !p.IsActive {
			continue
		}
		pi := len(c.profiles)
		c.profiles = append(c.profiles, p)

		seen := make(map[string]struct{}, len(p.Keywords))
		for _, kw := range p.Keywords {
			norm := normalize(kw)
			if norm == "" {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}

			ki, ok := index[norm]
			if !ok {
				ki = len(c.keywords)
				index[norm] = ki
				c.keywords = append(c.keywords, norm)
			}
			c.kwToProfs[ki] = append(c.kwToProfs[ki], pi)
		}
	}

	if len(c.keywords) > 0 {
		c.ac = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Scores evaluates every active profile, sorted by probability descending
// then code ascending.
func (c *Classifier) Scores(text string, tags []string) []Score {
	keywordHits := c.keywordHits(text)
	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if n := normalize(t); n != "" {
			tagSet[n] = struct{}{}
		}
	}

	scores := make([]Score, len(c.profiles))
	for pi, p := range c.profiles {
		matchedTags := 0
		seen := make(map[string]struct{}, len(p.Tags))
		for _, t := range p.Tags {
			n := normalize(t)
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			if _, ok := tagSet[n]; ok {
				matchedTags++
			}
		}

		raw := float64(keywordHits[pi])*p.KeywordWeight + float64(matchedTags)*p.TagWeight
		scores[pi] = Score{
			Code:            p.Code,
			MatchedKeywords: keywordHits[pi],
			MatchedTags:     matchedTags,
			Raw:             raw,
			Probability:     raw / (raw + 1),
			MinProbability:  p.MinProbability,
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Probability != scores[j].Probability {
			return scores[i].Probability > scores[j].Probability
		}
		return scores[i].Code < scores[j].Code
	})
	return scores
}

// Classify returns the best profile, or nil when no profile scores or the
// best one falls below its min_probability.
func (c *Classifier) Classify(text string, tags []string) *Result {
	scores := c.Scores(text, tags)
	if len(scores) == 0 {
		return nil
	}
	best := scores[0]
	if best.Raw <= 0 || best.Probability < best.MinProbability {
		return nil
	}
	return &Result{Code: best.Code, Probability: best.Probability}
}

// keywordHits counts distinct matched keywords per profile index.
func (c *Classifier) keywordHits(text string) []int {
	hits := make([]int, len(c.profiles))
	if c.ac == nil || text == "" {
		return hits
	}

	c.mu.Lock()
	found := c.ac.Match([]byte(normalize(text)))
	c.mu.Unlock()

	for _, ki := range found {
		for _, pi := range c.kwToProfs[ki] {
			hits[pi]++
		}
	}
	return hits
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
