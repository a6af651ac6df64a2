package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

const forbiddenWordColumns = `id, word, category, description, severity, is_active,
	case_sensitive, use_regex, created_at, updated_at`

// ForbiddenWordFilter narrows rule listings.
type ForbiddenWordFilter struct {
	Category   string
	ActiveOnly bool
	Search     string
}

// ForbiddenWordRepository stores matching rules.
type ForbiddenWordRepository struct {
	db *sqlx.DB
}

// NewForbiddenWordRepository creates a new forbidden word repository.
func NewForbiddenWordRepository(db *sqlx.DB) *ForbiddenWordRepository {
	return &ForbiddenWordRepository{db: db}
}

// Create inserts w. A duplicate word yields ErrDuplicate.
func (r *ForbiddenWordRepository) Create(ctx context.Context, w *models.ForbiddenWord) error {
	query := `
		INSERT INTO forbidden_words (word, category, description, severity, is_active,
			case_sensitive, use_regex)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		w.Word, w.Category, w.Description, w.Severity, w.IsActive, w.CaseSensitive, w.UseRegex,
	).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create forbidden word: %w", mapError(err))
	}
	return nil
}

// GetByID returns the rule or ErrNotFound.
func (r *ForbiddenWordRepository) GetByID(ctx context.Context, id int64) (*models.ForbiddenWord, error) {
	var w models.ForbiddenWord
	query := `SELECT ` + forbiddenWordColumns + ` FROM forbidden_words WHERE id = $1`
	if err := r.db.GetContext(ctx, &w, query, id); err != nil {
		return nil, fmt.Errorf("get forbidden word %d: %w", id, mapError(err))
	}
	return &w, nil
}

// List returns a page of rules ordered by category then word.
func (r *ForbiddenWordRepository) List(
	ctx context.Context,
	filter ForbiddenWordFilter,
	params pagination.Params,
) (pagination.Page[models.ForbiddenWord], error) {
	where := &whereClause{}
	if filter.Category != "" {
		where.add("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		where.add("is_active = ?", true)
	}
	if filter.Search != "" {
		where.add("(word ILIKE ? OR description ILIKE ?)", "%"+filter.Search+"%")
	}

	page, err := paginate[models.ForbiddenWord](ctx, r.db, listQuery{
		columns: forbiddenWordColumns,
		from:    "forbidden_words",
		where:   where,
		orderBy: "category ASC, word ASC, id ASC",
	}, params)
	if err != nil {
		return page, fmt.Errorf("list forbidden words: %w", err)
	}
	return page, nil
}

// Update overwrites every editable field of w.
func (r *ForbiddenWordRepository) Update(ctx context.Context, w *models.ForbiddenWord) error {
	query := `
		UPDATE forbidden_words
		SET word = $2, category = $3, description = $4, severity = $5, is_active = $6,
			case_sensitive = $7, use_regex = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		w.ID, w.Word, w.Category, w.Description, w.Severity, w.IsActive, w.CaseSensitive, w.UseRegex,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update forbidden word %d: %w", w.ID, mapError(err))
	}
	return nil
}

// Delete removes a rule. Recorded violations keep their text and severity.
func (r *ForbiddenWordRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM forbidden_words WHERE id = $1`, id)
	if err = execRequireRows(result, err); err != nil {
		return fmt.Errorf("delete forbidden word %d: %w", id, err)
	}
	return nil
}

// Categories lists the distinct rule categories.
func (r *ForbiddenWordRepository) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	query := `SELECT DISTINCT category FROM forbidden_words ORDER BY category`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list forbidden word categories: %w", err)
	}
	return out, nil
}

// ActiveForbiddenWords returns the active rules in matching order.
func (r *ForbiddenWordRepository) ActiveForbiddenWords(ctx context.Context) ([]models.ForbiddenWord, error) {
	var out []models.ForbiddenWord
	query := `SELECT ` + forbiddenWordColumns + ` FROM forbidden_words WHERE is_active ORDER BY id`
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list active forbidden words: %w", err)
	}
	return out, nil
}
