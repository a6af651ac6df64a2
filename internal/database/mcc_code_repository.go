package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const mccCodeColumns = `id, code, description, category, keywords, tags, keyword_weight,
	tag_weight, min_probability, is_active, created_at, updated_at`

// MCCCodeFilter narrows profile listings.
type MCCCodeFilter struct {
	Category   string
	ActiveOnly bool
}

// MCCCodeRepository stores classification profiles.
type MCCCodeRepository struct {
	db *sqlx.DB
}

// NewMCCCodeRepository creates a new MCC code repository.
func NewMCCCodeRepository(db *sqlx.DB) *MCCCodeRepository {
	return &MCCCodeRepository{db: db}
}

// Create inserts m. A duplicate code yields ErrDuplicate.
func (r *MCCCodeRepository) Create(ctx context.Context, m *models.MCCCode) error {
	query := `
		INSERT INTO mcc_codes (code, description, category, keywords, tags, keyword_weight,
			tag_weight, min_probability, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		m.Code, m.Description, m.Category, m.Keywords, m.Tags,
		m.KeywordWeight, m.TagWeight, m.MinProbability, m.IsActive,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create mcc code: %w", mapError(err))
	}
	return nil
}

// GetByID returns the profile or ErrNotFound.
func (r *MCCCodeRepository) GetByID(ctx context.Context, id int64) (*models.MCCCode, error) {
	var m models.MCCCode
	query := `SELECT ` + mccCodeColumns + ` FROM mcc_codes WHERE id = $1`
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, fmt.Errorf("get mcc code %d: %w", id, mapError(err))
	}
	return &m, nil
}

// List returns a page of profiles ordered by code.
func (r *MCCCodeRepository) List(
	ctx context.Context,
	filter MCCCodeFilter,
	params pagination.Params,
) (pagination.Page[models.MCCCode], error) {
	where := &whereClause{}
	if filter.Category != "" {
		where.add("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		where.add("is_active = ?", true)
	}

	page, err := paginate[models.MCCCode](ctx, r.db, listQuery{
		columns: mccCodeColumns,
		from:    "mcc_codes",
		where:   where,
		orderBy: "code ASC",
	}, params)
	if err != nil {
		return page, fmt.Errorf("list mcc codes: %w", err)
	}
	return page, nil
}

// Update overwrites every editable field of m.
func (r *MCCCodeRepository) Update(ctx context.Context, m *models.MCCCode) error {
	query := `
		UPDATE mcc_codes
		SET code = $2, description = $3, category = $4, keywords = $5, tags = $6,
			keyword_weight = $7, tag_weight = $8, min_probability = $9, is_active = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		m.ID, m.Code, m.Description, m.Category, m.Keywords, m.Tags,
		m.KeywordWeight, m.TagWeight, m.MinProbability, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update mcc code %d: %w", m.ID, mapError(err))
	}
	return nil
}

// Delete removes a profile.
func (r *MCCCodeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM mcc_codes WHERE id = $1`, id)
	if err = execRequireRows(result, err); err != nil {
		return fmt.Errorf("delete mcc code %d: %w", id, err)
	}
	return nil
}

// Categories lists the distinct profile categories.
func (r *MCCCodeRepository) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	query := `SELECT DISTINCT category FROM mcc_codes ORDER BY category`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list mcc code categories: %w", err)
	}
	return out, nil
}

// ActiveMCCCodes returns the active profiles ordered by code.
func (r *MCCCodeRepository) ActiveMCCCodes(ctx context.Context) ([]models.MCCCode, error) {
	var out []models.MCCCode
	query := `SELECT ` + mccCodeColumns + ` FROM mcc_codes WHERE is_active ORDER BY code`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list active mcc codes: %w", err)
	}
	return out, nil
}

// RuleSource serves the active rules and profiles for scan snapshots.
type RuleSource struct {
	Words *ForbiddenWordRepository
	Codes *MCCCodeRepository
}

// ActiveForbiddenWords delegates to the forbidden word repository.
func (s RuleSource) ActiveForbiddenWords(ctx context.Context) ([]models.ForbiddenWord, error) {
	return s.Words.ActiveForbiddenWords(ctx)
}

// ActiveMCCCodes delegates to the MCC code repository.
func (s RuleSource) ActiveMCCCodes(ctx context.Context) ([]models.MCCCode, error) {
	return s.Codes.ActiveMCCCodes(ctx)
}
