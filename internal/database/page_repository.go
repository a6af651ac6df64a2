package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const webpageColumns = `w.id, w.contractor_id, w.scan_session_id, w.url, w.title, w.meta_description,
	w.status, w.http_status, w.response_time, w.violations_found, w.violations_count,
	w.last_scanned, w.created_at, w.updated_at`

const violationDetailColumns = `v.id, v.webpage_id, v.forbidden_word_id, v.word_found, v.context,
	v.position, v.severity, v.created_at,
	f.word AS forbidden_word_word, f.category AS forbidden_word_category,
	f.description AS forbidden_word_description`

const maxExportRows = 50000

// PageFilter narrows a contractor's page listing.
type PageFilter struct {
	Status         string
	ViolationsOnly bool
}

// ScanResultFilter narrows the scan results listing.
type ScanResultFilter struct {
	ContractorID *int64
	Severity     string
}

// ExportRow is one violation flattened for spreadsheet export.
type ExportRow struct {
	ContractorName   string     `db:"contractor_name"`
	ContractorDomain string     `db:"contractor_domain"`
	URL              string     `db:"url"`
	Title            *string    `db:"title"`
	RuleWord         *string    `db:"forbidden_word_word"`
	RuleCategory     *string    `db:"forbidden_word_category"`
	WordFound        string     `db:"word_found"`
	Severity         string     `db:"severity"`
	Context          string     `db:"context"`
	Position         int        `db:"position"`
	LastScanned      *time.Time `db:"last_scanned"`
}

type scanResultRow struct {
	models.WebPage
	ContractorName   string `db:"contractor_name"`
	ContractorDomain string `db:"contractor_domain"`
}

// PageRepository reads scanned pages and their violations.
type PageRepository struct {
	db *sqlx.DB
}

// NewPageRepository creates a new page repository.
func NewPageRepository(db *sqlx.DB) *PageRepository {
	return &PageRepository{db: db}
}

// ListByContractor returns a page of a contractor's pages, most recently
// scanned first.
func (r *PageRepository) ListByContractor(
	ctx context.Context,
	contractorID int64,
	filter PageFilter,
	params pagination.Params,
) (pagination.Page[models.WebPage], error) {
	where := &whereClause{}
	where.add("w.contractor_id = ?", contractorID)
	if filter.Status != "" {
		where.add("w.status = ?", filter.Status)
	}
	if filter.ViolationsOnly {
		where.add("w.violations_found = ?", true)
	}

	page, err := paginate[models.WebPage](ctx, r.db, listQuery{
		columns: webpageColumns,
		from:    "webpages w",
		where:   where,
		orderBy: "w.last_scanned DESC NULLS LAST, w.id DESC",
	}, params)
	if err != nil {
		return page, fmt.Errorf("list pages of contractor %d: %w", contractorID, err)
	}
	return page, nil
}

// GetWithViolations returns one page of a contractor with its violations.
func (r *PageRepository) GetWithViolations(
	ctx context.Context,
	contractorID, pageID int64,
) (*models.PageWithViolations, error) {
	var out models.PageWithViolations
	query := `SELECT ` + webpageColumns + ` FROM webpages w WHERE w.id = $1 AND w.contractor_id = $2`
	if err := r.db.GetContext(ctx, &out.WebPage, query, pageID, contractorID); err != nil {
		return nil, fmt.Errorf("get page %d: %w", pageID, mapError(err))
	}

	byPage, err := r.violationsFor(ctx, []int64{pageID})
	if err != nil {
		return nil, err
	}
	out.Violations = byPage[pageID]
	if out.Violations == nil {
		out.Violations = []models.ViolationDetail{}
	}
	return &out, nil
}

// ListBySession returns a page of the pages recorded by a session, each
// with its violations.
func (r *PageRepository) ListBySession(
	ctx context.Context,
	sessionID int64,
	params pagination.Params,
) (pagination.Page[models.PageWithViolations], error) {
	where := &whereClause{}
	where.add("w.scan_session_id = ?", sessionID)

	pages, err := paginate[models.WebPage](ctx, r.db, listQuery{
		columns: webpageColumns,
		from:    "webpages w",
		where:   where,
		orderBy: "w.id ASC",
	}, params)
	if err != nil {
		return pagination.Page[models.PageWithViolations]{}, fmt.Errorf("list pages of session %d: %w", sessionID, err)
	}

	byPage, err := r.violationsFor(ctx, pageIDs(pages.Items))
	if err != nil {
		return pagination.Page[models.PageWithViolations]{}, err
	}

	return pagination.Map(pages, func(p models.WebPage) models.PageWithViolations {
		v := byPage[p.ID]
		if v == nil {
			v = []models.ViolationDetail{}
		}
		return models.PageWithViolations{WebPage: p, Violations: v}
	}), nil
}

// ScanResults returns a page of pages that currently have violations,
// with their contractor and violations.
func (r *PageRepository) ScanResults(
	ctx context.Context,
	filter ScanResultFilter,
	params pagination.Params,
) (pagination.Page[models.ScanResult], error) {
	where := scanResultWhere(filter)

	rows, err := paginate[scanResultRow](ctx, r.db, listQuery{
		columns: webpageColumns + `, c.name AS contractor_name, c.domain AS contractor_domain`,
		from:    "webpages w JOIN contractors c ON c.id = w.contractor_id",
		where:   where,
		orderBy: "w.last_scanned DESC NULLS LAST, w.id DESC",
	}, params)
	if err != nil {
		return pagination.Page[models.ScanResult]{}, fmt.Errorf("list scan results: %w", err)
	}

	ids := make([]int64, len(rows.Items))
	for i, row := range rows.Items {
		ids[i] = row.ID
	}
	byPage, err := r.violationsFor(ctx, ids)
	if err != nil {
		return pagination.Page[models.ScanResult]{}, err
	}

	return pagination.Map(rows, func(row scanResultRow) models.ScanResult {
		v := byPage[row.ID]
		if v == nil {
			v = []models.ViolationDetail{}
		}
		return models.ScanResult{
			WebPage: row.WebPage,
			Contractor: models.ContractorSummary{
				ID:     row.ContractorID,
				Name:   row.ContractorName,
				Domain: row.ContractorDomain,
			},
			Violations: v,
		}
	}), nil
}

// ExportRows returns the scan results flattened to one row per violation.
func (r *PageRepository) ExportRows(ctx context.Context, filter ScanResultFilter) ([]ExportRow, error) {
	where := scanResultWhere(filter)
	if filter.Severity != "" {
		where.add("v.severity = ?", filter.Severity)
	}

	query := `
		SELECT c.name AS contractor_name, c.domain AS contractor_domain, w.url, w.title,
			f.word AS forbidden_word_word, f.category AS forbidden_word_category,
			v.word_found, v.severity, v.context, v.position, w.last_scanned
		FROM violations v
		JOIN webpages w ON w.id = v.webpage_id
		JOIN contractors c ON c.id = w.contractor_id
		LEFT JOIN forbidden_words f ON f.id = v.forbidden_word_id` +
		where.String() + `
		ORDER BY c.name, w.url, v.position
		LIMIT ` + where.next(1)

	args := append(append([]any{}, where.args...), maxExportRows)
	var out []ExportRow
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("export scan results: %w", err)
	}
	return out, nil
}

func scanResultWhere(filter ScanResultFilter) *whereClause {
	where := &whereClause{}
	where.add("w.violations_found = ?", true)
	if filter.ContractorID != nil {
		where.add("w.contractor_id = ?", *filter.ContractorID)
	}
	if filter.Severity != "" {
		where.add("EXISTS (SELECT 1 FROM violations sv WHERE sv.webpage_id = w.id AND sv.severity = ?)",
			filter.Severity)
	}
	return where
}

// violationsFor loads the violations of the given pages keyed by page id.
func (r *PageRepository) violationsFor(ctx context.Context, ids []int64) (map[int64][]models.ViolationDetail, error) {
	out := make(map[int64][]models.ViolationDetail, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT ` + violationDetailColumns + `
		FROM violations v
		LEFT JOIN forbidden_words f ON f.id = v.forbidden_word_id
		WHERE v.webpage_id = ANY($1)
		ORDER BY v.webpage_id, v.position, v.id
	`
	var rows []models.ViolationDetail
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load violations: %w", err)
	}
	for _, v := range rows {
		out[v.WebPageID] = append(out[v.WebPageID], v)
	}
	return out, nil
}

func pageIDs(pages []models.WebPage) []int64 {
	ids := make([]int64, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return ids
}
