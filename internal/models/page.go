package models

import "time"

// Page statuses.
const (
	PageStatusPending = "pending"
	PageStatusSuccess = "success"
	PageStatusError   = "error"
)

// WebPage is one URL of a contractor's site as last scanned.
type WebPage struct {
	ID              int64      `db:"id"               json:"id"`
	ContractorID    int64      `db:"contractor_id"    json:"contractor_id"`
	ScanSessionID   *int64     `db:"scan_session_id"  json:"scan_session_id"`
	URL             string     `db:"url"              json:"url"`
	Title           *string    `db:"title"            json:"title"`
	MetaDescription *string    `db:"meta_description" json:"meta_description"`
	Status          string     `db:"status"           json:"status"`
	HTTPStatus      *int       `db:"http_status"      json:"http_status"`
	ResponseTime    *float64   `db:"response_time"    json:"response_time"`
	ViolationsFound bool       `db:"violations_found" json:"violations_found"`
	ViolationsCount int        `db:"violations_count" json:"violations_count"`
	LastScanned     *time.Time `db:"last_scanned"     json:"last_scanned"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// Violation is a single rule match recorded against a page. It keeps the
// matched text and severity as they were when recorded.
type Violation struct {
	ID              int64     `db:"id"                json:"id"`
	WebPageID       int64     `db:"webpage_id"        json:"webpage_id"`
	ForbiddenWordID *int64    `db:"forbidden_word_id" json:"forbidden_word_id"`
	WordFound       string    `db:"word_found"        json:"word_found"`
	Context         string    `db:"context"           json:"context"`
	Position        int       `db:"position"          json:"position"`
	Severity        string    `db:"severity"          json:"severity"`
	CreatedAt       time.Time `db:"created_at"        json:"created_at"`
}

// ViolationDetail is a violation joined with the rule that produced it.
// The rule fields are nil once the rule has been deleted.
type ViolationDetail struct {
	Violation
	RuleWord        *string `db:"forbidden_word_word"        json:"forbidden_word_word"`
	RuleCategory    *string `db:"forbidden_word_category"    json:"forbidden_word_category"`
	RuleDescription *string `db:"forbidden_word_description" json:"forbidden_word_description"`
}

// PageWithViolations is a page together with its recorded violations.
type PageWithViolations struct {
	WebPage
	Violations []ViolationDetail `json:"violations"`
}

// ScanResult is a page that currently has violations, with its contractor.
type ScanResult struct {
	WebPage
	Contractor ContractorSummary `json:"contractor"`
	Violations []ViolationDetail `json:"violations"`
}
