// Package matcher evaluates forbidden-word rules against extracted page text.
//
// Positions are zero-based character (rune) offsets into the original text.
// Case-insensitive literal rules search a per-rune lower-cased copy of the
// text, which has the same rune count as the original, so every offset found
// in the folded copy is also an offset into the original. Snippets and
// matched words are always cut from the original text.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

// DefaultContextRadius is the number of characters kept on each side of a match.
const DefaultContextRadius = 50

// Match is one rule hit in a text.
type Match struct {
	RuleID    int64
	WordFound string
	Context   string
	Position  int
	Severity  string
}

type compiledRule struct {
	rule   models.ForbiddenWord
	re     *regexp2.Regexp
	folded string
}

// Matcher applies an ordered set of rules. It is immutable and safe for
// concurrent use.
type Matcher struct {
	rules  []compiledRule
	radius int
}

// SkippedRule reports a rule that could not be compiled.
type SkippedRule struct {
	RuleID int64
	Err    error
}

// New compiles the active rules in order. Regex patterns are served from
// cache. Rules that fail to compile are returned as skipped instead of
// failing the whole set.
func New(words []models.ForbiddenWord, radius int, cache *PatternCache) (*Matcher, []SkippedRule) {
	if radius < 0 {
		radius = DefaultContextRadius
	}
	if cache == nil {
		cache = defaultCache
	}

	m := &Matcher{rules: make([]compiledRule, 0, len(words)), radius: radius}
	var skipped []SkippedRule

	for _, w := range words {
		if !w.IsActive || w.Word == "" {
			continue
		}
		cr := compiledRule{rule: w}
		if w.UseRegex {
			re, err := cache.Get(w.Word, w.CaseSensitive)
			if err != nil {
				skipped = append(skipped, SkippedRule{RuleID: w.ID, Err: err})
				continue
			}
			cr.re = re
		} else if w.CaseSensitive {
			cr.folded = w.Word
		} else {
			cr.folded = foldString(w.Word)
		}
		m.rules = append(m.rules, cr)
	}
	return m, skipped
}

// Len returns the number of usable rules.
func (m *Matcher) Len() int { return len(m.rules) }

// Match returns every violation in text, grouped by rule in rule order and
// ordered by position within a rule.
func (m *Matcher) Match(text string) []Match {
	if text == "" || len(m.rules) == 0 {
		return nil
	}

	var (
		folded     string
		foldedDone bool
		runes      = []rune(text)
		matches    []Match
	)

	for _, cr := range m.rules {
		var spans [][2]int
		switch {
		case cr.re != nil:
			spans = regexSpans(cr.re, text)
		case cr.rule.CaseSensitive:
			spans = literalSpans(text, cr.folded)
		default:
			if !foldedDone {
				folded = foldRunes(runes)
				foldedDone = true
			}
			spans = literalSpans(folded, cr.folded)
		}

		for _, sp := range spans {
			matches = append(matches, Match{
				RuleID:    cr.rule.ID,
				WordFound: string(runes[sp[0]:sp[1]]),
				Context:   window(runes, sp[0], sp[1], m.radius),
				Position:  sp[0],
				Severity:  cr.rule.Severity,
			})
		}
	}
	return matches
}

// regexSpans returns non-empty, non-overlapping matches as rune offsets.
// A search that exceeds the pattern timeout keeps the matches found so far.
func regexSpans(re *regexp2.Regexp, text string) [][2]int {
	var spans [][2]int
	m, err := re.FindStringMatch(text)
	for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
		if m.Length == 0 {
			continue
		}
		spans = append(spans, [2]int{m.Index, m.Index + m.Length})
	}
	return spans
}

// literalSpans finds non-overlapping occurrences of needle in haystack and
// returns them as rune offsets.
func literalSpans(haystack, needle string) [][2]int {
	if needle == "" {
		return nil
	}
	needleRunes := utf8.RuneCountInString(needle)
	conv := newRuneOffsets(haystack)

	var spans [][2]int
	for from := 0; from <= len(haystack); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			break
		}
		start := conv.at(from + idx)
		spans = append(spans, [2]int{start, start + needleRunes})
		from += idx + len(needle)
	}
	return spans
}

// window cuts radius runes on each side of [start,end), clipped to bounds.
func window(runes []rune, start, end, radius int) string {
	lo := max(start-radius, 0)
	hi := min(end+radius, len(runes))
	return string(runes[lo:hi])
}

func foldString(s string) string {
	return foldRunes([]rune(s))
}

func foldRunes(runes []rune) string {
	var b strings.Builder
	b.Grow(len(runes))
	for _, r := range runes {
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// runeOffsets converts increasing byte offsets of s into rune offsets.
type runeOffsets struct {
	s        string
	lastByte int
	lastRune int
}

func newRuneOffsets(s string) *runeOffsets {
	return &runeOffsets{s: s}
}

func (c *runeOffsets) at(byteOff int) int {
	if byteOff < c.lastByte {
		c.lastByte, c.lastRune = 0, 0
	}
	c.lastRune += utf8.RuneCountInString(c.s[c.lastByte:byteOff])
	c.lastByte = byteOff
	return c.lastRune
}
