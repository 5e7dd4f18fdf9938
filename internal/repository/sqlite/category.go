package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
)

// ListCategories returns all categories ordered by name ascending.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by id, or apperror.ErrNotFound.
func (db *DB) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}
	return &c, nil
}

// CreateCategory inserts a new category. A duplicate name violates the UNIQUE
// constraint and comes back as apperror.ErrConflict.
func (db *DB) CreateCategory(ctx context.Context, name, color string) (*model.Category, error) {
	now := nowUTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (name, color, created_at) VALUES (?, ?, ?)`,
		name, color, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("category", name)
		}
		return nil, fmt.Errorf("sqlite: creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading new category id: %w", err)
	}

	return &model.Category{ID: id, Name: name, Color: color, CreatedAt: now}, nil
}

// UpdateCategory renames/recolours a category.
//
// NO RETROACTIVE REPAINT:
// Pins carry a colour snapshot taken when THEY were written. Changing a
// category's colour here deliberately leaves every existing pin untouched.
func (db *DB) UpdateCategory(ctx context.Context, id int64, name, color string) (*model.Category, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ? WHERE id = ?`,
		name, color, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("category", name)
		}
		return nil, fmt.Errorf("sqlite: updating category %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("category", id)
	}

	return db.GetCategory(ctx, id)
}

// DeleteCategory removes a category unless any pin still references it.
//
// CHECK-THEN-DELETE:
// The count check and the DELETE are two separate statements, not one
// transaction. A pin created in between the two references a category that
// is about to vanish — an accepted race inherited from the data model, where
// pins reference categories by denormalized name, not foreign key.
func (db *DB) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pins WHERE category = (SELECT name FROM categories WHERE id = ?)`,
		id,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: counting pins for category %d: %w", id, err)
	}
	if count > 0 {
		return false, apperror.InUse("cannot delete a category that is used by pins")
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting category %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected > 0, nil
}

// isUniqueViolation detects SQLite's unique-constraint error by message.
// The pure-Go driver doesn't export a typed error for this, but the text
// "UNIQUE constraint failed" is part of SQLite's stable error format.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
