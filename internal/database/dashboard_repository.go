package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const recentSessionsLimit = 5

// DashboardRepository aggregates overview numbers.
type DashboardRepository struct {
	db       *sqlx.DB
	sessions *SessionRepository
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db, sessions: NewSessionRepository(db)}
}

// Stats collects the dashboard counters and the most recent sessions.
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var counts struct {
		TotalContractors     int `db:"total_contractors"`
		ActiveContractors    int `db:"active_contractors"`
		ActiveForbiddenWords int `db:"active_forbidden_words"`
		ScannedPages         int `db:"scanned_pages"`
		PagesWithViolations  int `db:"pages_with_violations"`
		TotalViolations      int `db:"total_violations"`
		RunningSessions      int `db:"running_sessions"`
	}
	query := `
		SELECT
			(SELECT COUNT(*) FROM contractors) AS total_contractors,
			(SELECT COUNT(*) FROM contractors WHERE is_active) AS active_contractors,
			(SELECT COUNT(*) FROM forbidden_words WHERE is_active) AS active_forbidden_words,
			(SELECT COUNT(*) FROM webpages WHERE status <> 'pending') AS scanned_pages,
			(SELECT COUNT(*) FROM webpages WHERE violations_found) AS pages_with_violations,
			(SELECT COUNT(*) FROM violations) AS total_violations,
			(SELECT COUNT(*) FROM scan_sessions WHERE status = 'running') AS running_sessions
	`
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	var bySeverity []struct {
		Severity string `db:"severity"`
		Count    int    `db:"count"`
	}
	severityQuery := `SELECT severity, COUNT(*) AS count FROM violations GROUP BY severity`
	if err := r.db.SelectContext(ctx, &bySeverity, severityQuery); err != nil {
		return nil, fmt.Errorf("dashboard severities: %w", err)
	}

	recent, err := r.sessions.List(ctx, SessionFilter{}, pagination.Params{Page: 1, PageSize: recentSessionsLimit})
	if err != nil {
		return nil, fmt.Errorf("dashboard recent sessions: %w", err)
	}

	stats := &models.DashboardStats{
		TotalContractors:     counts.TotalContractors,
		ActiveContractors:    counts.ActiveContractors,
		ActiveForbiddenWords: counts.ActiveForbiddenWords,
		ScannedPages:         counts.ScannedPages,
		PagesWithViolations:  counts.PagesWithViolations,
		TotalViolations:      counts.TotalViolations,
		RunningSessions:      counts.RunningSessions,
		ViolationsBySeverity: make(map[string]int, len(models.Severities)),
		RecentSessions:       recent.Items,
	}
	for _, s := range models.Severities {
		stats.ViolationsBySeverity[s] = 0
	}
	for _, row := range bySeverity {
		stats.ViolationsBySeverity[row.Severity] = row.Count
	}
	return stats, nil
}
