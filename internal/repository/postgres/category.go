package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
)

func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating categories: %w", err)
	}
	return categories, nil
}

func (db *DB) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("postgres: getting category %d: %w", id, err)
	}
	return &c, nil
}

func (db *DB) CreateCategory(ctx context.Context, name, color string) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO categories (name, color) VALUES ($1, $2) RETURNING id, name, color, created_at`,
		name, color,
	).Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("category", name)
		}
		return nil, fmt.Errorf("postgres: creating category: %w", err)
	}
	return &c, nil
}

// UpdateCategory renames/recolours a category. Pins tagged with it keep
// their colour snapshot — no retroactive repaint.
func (db *DB) UpdateCategory(ctx context.Context, id int64, name, color string) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`UPDATE categories SET name = $1, color = $2 WHERE id = $3 RETURNING id, name, color, created_at`,
		name, color, id,
	).Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("category", name)
		}
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("postgres: updating category %d: %w", id, err)
	}
	return &c, nil
}

// DeleteCategory removes a category unless any pin still references it by
// name. The count check and the delete are deliberately two statements —
// the same accepted race the sqlite backend documents.
func (db *DB) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pins WHERE category = (SELECT name FROM categories WHERE id = $1)`,
		id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("postgres: counting pins for category %d: %w", id, err)
	}
	if count > 0 {
		return false, apperror.InUse("cannot delete a category that is used by pins")
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting category %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	return affected > 0, nil
}
