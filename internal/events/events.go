// Package events publishes scan notifications to Redis streams.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Stream names.
const (
	StreamViolations  = "violation_notifications"
	StreamScanResults = "scan_results"
)

// ViolationItem is one match in a violation notification.
type ViolationItem struct {
	WordFound string `json:"word_found"`
	Severity  string `json:"severity"`
	Position  int    `json:"position"`
}

// ViolationEvent announces a page on which violations were found.
type ViolationEvent struct {
	EventID        uuid.UUID       `json:"event_id"`
	ContractorID   int64           `json:"contractor_id"`
	ContractorName string          `json:"contractor_name"`
	SessionID      int64           `json:"session_id"`
	PageID         int64           `json:"page_id"`
	URL            string          `json:"url"`
	Violations     []ViolationItem `json:"violations"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ScanResultEvent announces a finalized scan session.
type ScanResultEvent struct {
	EventID             uuid.UUID `json:"event_id"`
	SessionID           int64     `json:"session_id"`
	ContractorID        int64     `json:"contractor_id"`
	Status              string    `json:"status"`
	PagesScanned        int       `json:"pages_scanned"`
	PagesWithViolations int       `json:"pages_with_violations"`
	TotalViolations     int       `json:"total_violations"`
	ErrorMessage        *string   `json:"error_message,omitempty"`
	MCCCode             *string   `json:"mcc_code,omitempty"`
	MCCProbability      float64   `json:"mcc_probability,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}
