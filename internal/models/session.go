package models

import "time"

// Scan session statuses. Completed and failed are terminal.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

// ScanSession is one bounded crawl-and-classify run over a contractor.
type ScanSession struct {
	ID                  int64      `db:"id"                    json:"id"`
	ContractorID        int64      `db:"contractor_id"         json:"contractor_id"`
	Status              string     `db:"status"                json:"status"`
	PagesScanned        int        `db:"pages_scanned"         json:"pages_scanned"`
	PagesWithViolations int        `db:"pages_with_violations" json:"pages_with_violations"`
	TotalViolations     int        `db:"total_violations"      json:"total_violations"`
	StartedAt           time.Time  `db:"started_at"            json:"started_at"`
	CompletedAt         *time.Time `db:"completed_at"          json:"completed_at"`
	ErrorMessage        *string    `db:"error_message"         json:"error_message"`
}

// Duration is the run length: completed_at - started_at for finished
// sessions, elapsed time for running ones.
func (s *ScanSession) Duration(now time.Time) time.Duration {
	if s.CompletedAt != nil {
		return s.CompletedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// IsTerminal reports whether the session can no longer change state.
func (s *ScanSession) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionFailed
}

// ScanSessionView is a session row joined with its contractor for listings.
type ScanSessionView struct {
	ScanSession
	ContractorName   string  `db:"contractor_name"   json:"contractor_name"`
	ContractorDomain string  `db:"contractor_domain" json:"contractor_domain"`
	DurationSeconds  float64 `db:"duration"          json:"duration"`
}

// DashboardStats aggregates the overview numbers.
type DashboardStats struct {
	TotalContractors     int               `json:"total_contractors"`
	ActiveContractors    int               `json:"active_contractors"`
	ActiveForbiddenWords int               `json:"active_forbidden_words"`
	ScannedPages         int               `json:"scanned_pages"`
	PagesWithViolations  int               `json:"pages_with_violations"`
	TotalViolations      int               `json:"total_violations"`
	ViolationsBySeverity map[string]int    `json:"violations_by_severity"`
	RunningSessions      int               `json:"running_sessions"`
	RecentSessions       []ScanSessionView `json:"recent_sessions"`
}
