package models

import "time"

// Severity levels of a forbidden-word rule, in ascending order.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Severities lists the accepted severity values.
var Severities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ForbiddenWord is a matching rule applied to scanned page text.
type ForbiddenWord struct {
	ID            int64     `db:"id"             json:"id"`
	Word          string    `db:"word"           json:"word"`
	Category      string    `db:"category"       json:"category"`
	Description   *string   `db:"description"    json:"description"`
	Severity      string    `db:"severity"       json:"severity"`
	IsActive      bool      `db:"is_active"      json:"is_active"`
	CaseSensitive bool      `db:"case_sensitive" json:"case_sensitive"`
	UseRegex      bool      `db:"use_regex"      json:"use_regex"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"     json:"updated_at"`
}

// MCCCode is a merchant-category classification profile.
type MCCCode struct {
	ID             int64      `db:"id"              json:"id"`
	Code           string     `db:"code"            json:"code"`
	Description    string     `db:"description"     json:"description"`
	Category       string     `db:"category"        json:"category"`
	Keywords       StringList `db:"keywords"        json:"keywords"`
	Tags           StringList `db:"tags"            json:"tags"`
	KeywordWeight  float64    `db:"keyword_weight"  json:"keyword_weight"`
	TagWeight      float64    `db:"tag_weight"      json:"tag_weight"`
	MinProbability float64    `db:"min_probability" json:"min_probability"`
	IsActive       bool       `db:"is_active"       json:"is_active"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"      json:"updated_at"`
}

// MCC profile defaults.
const (
	DefaultKeywordWeight  = 1.0
	DefaultTagWeight      = 0.5
	DefaultMinProbability = 0.7
)
