package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/huginn/internal/pagination"
)

// listQuery describes one paginated listing: the FROM/JOIN part shared by
// the count and the select, the selected columns and the ordering.
type listQuery struct {
	columns string
	from    string
	where   *whereClause
	orderBy string
}

// paginate runs the count and page queries of q and wraps the rows in the
// list envelope. Pages past the end return no items.
func paginate[T any](
	ctx context.Context,
	db sqlx.QueryerContext,
	q listQuery,
	params pagination.Params,
) (pagination.Page[T], error) {
	where := q.where
	if where == nil {
		where = &whereClause{}
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM " + q.from + where.String()
	if err := sqlx.GetContext(ctx, db, &total, countSQL, where.args...); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("count: %w", err)
	}

	items := []T{}
	if total > params.Offset() {
		selectSQL := "SELECT " + q.columns + " FROM " + q.from + where.String() +
			" ORDER BY " + q.orderBy +
			" LIMIT " + where.next(1) + " OFFSET " + where.next(2)
		args := append(append([]any{}, where.args...), params.Limit(), params.Offset())
		if err := sqlx.SelectContext(ctx, db, &items, selectSQL, args...); err != nil {
			return pagination.Page[T]{}, fmt.Errorf("select: %w", err)
		}
	}

	return pagination.New(items, params, total), nil
}
