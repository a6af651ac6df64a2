package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const contractorColumns = `id, name, domain, description, is_active, check_schedule,
	last_check, next_check, max_pages, max_depth, tags, mcc_code, mcc_probability,
	total_pages, scanned_pages, violations_found, created_at, updated_at`

// ContractorFilter narrows contractor listings.
type ContractorFilter struct {
	Search   string
	IsActive *bool
}

// ContractorRepository stores contractors.
type ContractorRepository struct {
	db *sqlx.DB
}

// NewContractorRepository creates a new contractor repository.
func NewContractorRepository(db *sqlx.DB) *ContractorRepository {
	return &ContractorRepository{db: db}
}

// Create inserts c and fills its generated fields.
func (r *ContractorRepository) Create(ctx context.Context, c *models.Contractor) error {
	query := `
		INSERT INTO contractors (name, domain, description, is_active, check_schedule,
			next_check, max_pages, max_depth, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		c.Name, c.Domain, c.Description, c.IsActive, c.CheckSchedule,
		c.NextCheck, c.MaxPages, c.MaxDepth, c.Tags,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create contractor: %w", mapError(err))
	}
	return nil
}

// GetByID returns the contractor or ErrNotFound.
func (r *ContractorRepository) GetByID(ctx context.Context, id int64) (*models.Contractor, error) {
	var c models.Contractor
	query := `SELECT ` + contractorColumns + ` FROM contractors WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("get contractor %d: %w", id, mapError(err))
	}
	return &c, nil
}

// List returns a page of contractors, newest first.
func (r *ContractorRepository) List(
	ctx context.Context,
	filter ContractorFilter,
	params pagination.Params,
) (pagination.Page[models.Contractor], error) {
	where := &whereClause{}
	if filter.Search != "" {
		where.add("(name ILIKE ? OR domain ILIKE ?)", "%"+filter.Search+"%")
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}

	page, err := paginate[models.Contractor](ctx, r.db, listQuery{
		columns: contractorColumns,
		from:    "contractors",
		where:   where,
		orderBy: "created_at DESC, id DESC",
	}, params)
	if err != nil {
		return page, fmt.Errorf("list contractors: %w", err)
	}
	return page, nil
}

// Update writes the operator-editable fields. Domain and rollups are
// never changed here.
func (r *ContractorRepository) Update(ctx context.Context, c *models.Contractor) error {
	query := `
		UPDATE contractors
		SET name = $2, description = $3, is_active = $4, check_schedule = $5,
			next_check = $6, max_pages = $7, max_depth = $8, tags = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.Description, c.IsActive, c.CheckSchedule,
		c.NextCheck, c.MaxPages, c.MaxDepth, c.Tags,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update contractor %d: %w", c.ID, mapError(err))
	}
	return nil
}

// Delete removes the contractor together with its pages and sessions.
func (r *ContractorRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contractors WHERE id = $1`, id)
	if err = execRequireRows(result, err); err != nil {
		return fmt.Errorf("delete contractor %d: %w", id, err)
	}
	return nil
}

// ListDue returns active contractors whose next check is due and that
// have no running session, oldest due first.
func (r *ContractorRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Contractor, error) {
	query := `
		SELECT ` + contractorColumns + `
		FROM contractors c
		WHERE c.is_active
		  AND (c.next_check IS NULL OR c.next_check <= $1)
		  AND NOT EXISTS (
			SELECT 1 FROM scan_sessions s WHERE s.contractor_id = c.id AND s.status = 'running'
		  )
		ORDER BY c.next_check ASC NULLS FIRST, c.id ASC
		LIMIT $2
	`

	var out []models.Contractor
	if err := r.db.SelectContext(ctx, &out, query, now, limit); err != nil {
		return nil, fmt.Errorf("list due contractors: %w", err)
	}
	return out, nil
}
