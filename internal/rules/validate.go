// Package rules validates forbidden-word rules, MCC profiles and contractor
// settings at write time, and takes the read-only rule snapshot a scan uses.
package rules

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
)

const (
	maxWordLength     = 255
	maxCategoryLength = 100
	maxCodeLength     = 10
	maxNameLength     = 255
)

// ValidationError describes why a record was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// PatternTimeout bounds a single regex search.
const PatternTimeout = time.Second

// CompilePattern compiles a rule pattern the way the matcher will use it.
// Word classes, digit classes and word boundaries are Unicode-aware, so
// rules such as \bказино\b or платеж\w* match Cyrillic text.
func CompilePattern(word string, caseSensitive bool) (*regexp2.Regexp, error) {
	opts := regexp2.None
	if !caseSensitive {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(word, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = PatternTimeout
	return re, nil
}

// ValidateForbiddenWord normalises w in place and rejects it when it could
// not be matched safely. Regex rules must compile and must not match the
// empty string.
func ValidateForbiddenWord(w *models.ForbiddenWord) error {
	w.Word = strings.TrimSpace(w.Word)
	w.Category = strings.TrimSpace(w.Category)
	w.Severity = strings.ToLower(strings.TrimSpace(w.Severity))

	if w.Word == "" {
		return invalid("word", "is required")
	}
	if utf8.RuneCountInString(w.Word) > maxWordLength {
		return invalid("word", "must be at most %d characters", maxWordLength)
	}
	if w.Category == "" {
		return invalid("category", "is required")
	}
	if utf8.RuneCountInString(w.Category) > maxCategoryLength {
		return invalid("category", "must be at most %d characters", maxCategoryLength)
	}
	if w.Severity == "" {
		w.Severity = models.SeverityMedium
	}
	if !slices.Contains(models.Severities, w.Severity) {
		return invalid("severity", "must be one of %s", strings.Join(models.Severities, ", "))
	}

	if w.UseRegex {
		re, err := CompilePattern(w.Word, w.CaseSensitive)
		if err != nil {
			return invalid("word", "invalid regular expression: %v", err)
		}
		empty, matchErr := re.MatchString("")
		if matchErr != nil {
			return invalid("word", "regular expression is too expensive: %v", matchErr)
		}
		if empty {
			return invalid("word", "regular expression must not match empty text")
		}
	}
	return nil
}

// ValidateMCCCode normalises c in place and checks weights and thresholds.
// Zero weights are accepted; callers apply defaults before validating.
func ValidateMCCCode(c *models.MCCCode) error {
	c.Code = strings.TrimSpace(c.Code)
	c.Category = strings.TrimSpace(c.Category)
	c.Description = strings.TrimSpace(c.Description)
	c.Keywords = cleanList(c.Keywords)
	c.Tags = cleanList(c.Tags)

	switch {
	case c.Code == "":
		return invalid("code", "is required")
	case len(c.Code) > maxCodeLength:
		return invalid("code", "must be at most %d characters", maxCodeLength)
	case c.Description == "":
		return invalid("description", "is required")
	case c.Category == "":
		return invalid("category", "is required")
	case c.KeywordWeight < 0:
		return invalid("keyword_weight", "must not be negative")
	case c.TagWeight < 0:
		return invalid("tag_weight", "must not be negative")
	case c.MinProbability < 0 || c.MinProbability > 1:
		return invalid("min_probability", "must be between 0 and 1")
	}
	return nil
}

// ApplyMCCDefaults fills weights and threshold for a freshly created profile.
func ApplyMCCDefaults(c *models.MCCCode, hasKeywordWeight, hasTagWeight, hasMinProbability bool) {
	if !hasKeywordWeight {
		c.KeywordWeight = models.DefaultKeywordWeight
	}
	if !hasTagWeight {
		c.TagWeight = models.DefaultTagWeight
	}
	if !hasMinProbability {
		c.MinProbability = models.DefaultMinProbability
	}
}

// ValidateContractor normalises c in place and checks crawl settings.
func ValidateContractor(c *models.Contractor) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Domain = models.NormalizeDomain(c.Domain)
	c.Tags = cleanList(c.Tags)
	if c.CheckSchedule == "" {
		c.CheckSchedule = models.ScheduleDaily
	}

	switch {
	case c.Name == "":
		return invalid("name", "is required")
	case utf8.RuneCountInString(c.Name) > maxNameLength:
		return invalid("name", "must be at most %d characters", maxNameLength)
	case c.Domain == "":
		return invalid("domain", "is required")
	case strings.ContainsAny(c.Domain, " /"):
		return invalid("domain", "must be a host name")
	case !models.ValidSchedule(c.CheckSchedule):
		return invalid("check_schedule", "must be one of hourly, daily, weekly, monthly")
	case c.MaxPages != nil && *c.MaxPages < 1:
		return invalid("max_pages", "must be at least 1")
	case c.MaxDepth != nil && *c.MaxDepth < 0:
		return invalid("max_depth", "must not be negative")
	}
	return nil
}

func cleanList(in models.StringList) models.StringList {
	out := make(models.StringList, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
