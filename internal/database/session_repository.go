package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const sessionColumns = `s.id, s.contractor_id, s.status, s.pages_scanned, s.pages_with_violations,
	s.total_violations, s.started_at, s.completed_at, s.error_message`

const sessionViewColumns = sessionColumns + `,
	c.name AS contractor_name, c.domain AS contractor_domain,
	EXTRACT(EPOCH FROM (COALESCE(s.completed_at, NOW()) - s.started_at))::float8 AS duration`

const sessionViewFrom = `scan_sessions s JOIN contractors c ON c.id = s.contractor_id`

// SessionFilter narrows session listings.
type SessionFilter struct {
	ContractorID *int64
	Status       string
}

// FinishParams finalizes a running session and rolls its results up into
// the contractor.
type FinishParams struct {
	SessionID    int64
	ContractorID int64
	Status       string
	ErrorMessage *string
	CompletedAt  time.Time
	NextCheck    time.Time
	// SetClassification replaces the contractor's MCC fields with
	// MCCCode/MCCProbability; a nil MCCCode clears them.
	SetClassification bool
	MCCCode           *string
	MCCProbability    float64
}

// PageRecord is one scanned page and the violations found on it.
type PageRecord struct {
	Page       *models.WebPage
	Violations []models.Violation
}

// SessionRepository stores scan sessions and the pages they record.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start inserts a running session. A session already running for the
// contractor yields ErrDuplicate.
func (r *SessionRepository) Start(ctx context.Context, contractorID int64, now time.Time) (*models.ScanSession, error) {
	query := `
		INSERT INTO scan_sessions AS s (contractor_id, status, started_at)
		VALUES ($1, 'running', $2)
		RETURNING ` + sessionColumns

	var s models.ScanSession
	if err := r.db.GetContext(ctx, &s, query, contractorID, now); err != nil {
		return nil, fmt.Errorf("start session for contractor %d: %w", contractorID, mapError(err))
	}
	return &s, nil
}

// GetByID returns the session or ErrNotFound.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ScanSession, error) {
	var s models.ScanSession
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions s WHERE s.id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, mapError(err))
	}
	return &s, nil
}

// GetView returns the session joined with its contractor.
func (r *SessionRepository) GetView(ctx context.Context, id int64) (*models.ScanSessionView, error) {
	var v models.ScanSessionView
	query := `SELECT ` + sessionViewColumns + ` FROM ` + sessionViewFrom + ` WHERE s.id = $1`
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, mapError(err))
	}
	return &v, nil
}

// List returns a page of sessions, most recent first.
func (r *SessionRepository) List(
	ctx context.Context,
	filter SessionFilter,
	params pagination.Params,
) (pagination.Page[models.ScanSessionView], error) {
	where := &whereClause{}
	if filter.ContractorID != nil {
		where.add("s.contractor_id = ?", *filter.ContractorID)
	}
	if filter.Status != "" {
		where.add("s.status = ?", filter.Status)
	}

	page, err := paginate[models.ScanSessionView](ctx, r.db, listQuery{
		columns: sessionViewColumns,
		from:    sessionViewFrom,
		where:   where,
		orderBy: "s.started_at DESC, s.id DESC",
	}, params)
	if err != nil {
		return page, fmt.Errorf("list sessions: %w", err)
	}
	return page, nil
}

// RecordPage stores one scanned page of a running session. The page row
// is upserted by URL, its previous violations replaced, and the session
// counters incremented, all in one transaction. A session that is no
// longer running yields ErrNotFound and nothing is written.
func (r *SessionRepository) RecordPage(ctx context.Context, sessionID int64, rec PageRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record page transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	withViolations := 0
	if len(rec.Violations) > 0 {
		withViolations = 1
	}

	counters := `
		UPDATE scan_sessions
		SET pages_scanned = pages_scanned + 1,
			pages_with_violations = pages_with_violations + $2,
			total_violations = total_violations + $3
		WHERE id = $1 AND status = 'running'
	`
	result, err := tx.ExecContext(ctx, counters, sessionID, withViolations, len(rec.Violations))
	if err = execRequireRows(result, err); err != nil {
		return fmt.Errorf("update session %d counters: %w", sessionID, err)
	}

	page := rec.Page
	page.ScanSessionID = &sessionID
	page.ViolationsCount = len(rec.Violations)
	page.ViolationsFound = page.ViolationsCount > 0

	upsert := `
		INSERT INTO webpages (contractor_id, scan_session_id, url, title, meta_description,
			status, http_status, response_time, violations_found, violations_count, last_scanned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (contractor_id, url) DO UPDATE SET
			scan_session_id = EXCLUDED.scan_session_id,
			title = EXCLUDED.title,
			meta_description = EXCLUDED.meta_description,
			status = EXCLUDED.status,
			http_status = EXCLUDED.http_status,
			response_time = EXCLUDED.response_time,
			violations_found = EXCLUDED.violations_found,
			violations_count = EXCLUDED.violations_count,
			last_scanned = EXCLUDED.last_scanned,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowxContext(ctx, upsert,
		page.ContractorID, page.ScanSessionID, page.URL, page.Title, page.MetaDescription,
		page.Status, page.HTTPStatus, page.ResponseTime, page.ViolationsFound,
		page.ViolationsCount, page.LastScanned,
	).Scan(&page.ID, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", page.URL, mapError(err))
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM violations WHERE webpage_id = $1`, page.ID); err != nil {
		return fmt.Errorf("clear violations of page %d: %w", page.ID, err)
	}

	if len(rec.Violations) > 0 {
		for i := range rec.Violations {
			rec.Violations[i].WebPageID = page.ID
		}
		insert := `
			INSERT INTO violations (webpage_id, forbidden_word_id, word_found, context, position, severity)
			VALUES (:webpage_id, :forbidden_word_id, :word_found, :context, :position, :severity)
		`
		if _, err = tx.NamedExecContext(ctx, insert, rec.Violations); err != nil {
			return fmt.Errorf("insert violations of page %d: %w", page.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record page transaction: %w", err)
	}
	return nil
}

// Finish moves a running session to its terminal status and updates the
// contractor rollups in the same transaction. A session that is not
// running yields ErrNotFound.
func (r *SessionRepository) Finish(ctx context.Context, p FinishParams) (*models.ScanSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finish transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	finish := `
		UPDATE scan_sessions AS s
		SET status = $2, completed_at = $3, error_message = $4
		WHERE s.id = $1 AND s.status = 'running'
		RETURNING ` + sessionColumns

	var s models.ScanSession
	if err = tx.GetContext(ctx, &s, finish, p.SessionID, p.Status, p.CompletedAt, p.ErrorMessage); err != nil {
		return nil, fmt.Errorf("finish session %d: %w", p.SessionID, mapError(err))
	}

	rollup := `
		UPDATE contractors
		SET last_check = $2,
			next_check = $3,
			scanned_pages = $4,
			total_pages = (SELECT COUNT(*) FROM webpages WHERE contractor_id = $1),
			violations_found = (
				SELECT COALESCE(SUM(violations_count), 0) FROM webpages WHERE contractor_id = $1
			),
			mcc_code = CASE WHEN $5 THEN $6 ELSE mcc_code END,
			mcc_probability = CASE WHEN $5 THEN $7 ELSE mcc_probability END,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := tx.ExecContext(ctx, rollup,
		p.ContractorID, p.CompletedAt, p.NextCheck, s.PagesScanned,
		p.SetClassification, p.MCCCode, p.MCCProbability,
	)
	if err = execRequireRows(result, err); err != nil {
		return nil, fmt.Errorf("update contractor %d rollups: %w", p.ContractorID, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finish transaction: %w", err)
	}
	return &s, nil
}

// Delete removes a finished session with its pages and their violations.
// Running sessions are never deleted and yield ErrNotFound.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM scan_sessions WHERE id = $1 AND status <> 'running'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err = execRequireRows(result, err); err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	return nil
}

// FailOrphaned marks sessions left running by a previous process as failed.
func (r *SessionRepository) FailOrphaned(ctx context.Context, reason string, now time.Time) (int64, error) {
	query := `
		UPDATE scan_sessions
		SET status = 'failed', completed_at = $2, error_message = $1
		WHERE status = 'running'
	`
	result, err := r.db.ExecContext(ctx, query, reason, now)
	if err != nil {
		return 0, fmt.Errorf("fail orphaned sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail orphaned sessions: %w", err)
	}
	return n, nil
}
