package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/repository"
)

// pinColumns is the SELECT list shared by every pin read.
//
// THE LEFT JOIN:
// Every read joins the pin's category by NAME to pick up the category's
// current name/colour as display-only extras. LEFT (not INNER) join because a
// pin may reference a category that no longer exists — the pin still shows,
// with empty joined fields, because its own stored colour is authoritative.
const pinColumns = `
	p.id, p.name, p.description, p.latitude, p.longitude,
	p.category, p.color, p.created_by, p.updated_by, p.created_at, p.updated_at,
	c.name, c.color`

const pinFrom = `
	FROM pins p
	LEFT JOIN categories c ON p.category = c.name`

// scanPin reads one joined pin row. The joined columns come back as NULL when
// the LEFT JOIN found no category, so they scan through sql.NullString.
func scanPin(row interface{ Scan(...any) error }) (*model.Pin, error) {
	var p model.Pin
	var categoryName, categoryColor sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Latitude, &p.Longitude,
		&p.Category, &p.Color, &p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
		&categoryName, &categoryColor,
	)
	if err != nil {
		return nil, err
	}
	p.CategoryName = categoryName.String
	p.CategoryColor = categoryColor.String
	return &p, nil
}

// ListPins returns every pin, newest first.
func (db *DB) ListPins(ctx context.Context) ([]model.Pin, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+pinColumns+pinFrom+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pins: %w", err)
	}
	// CRITICAL: always close rows — each holds a pooled connection.
	defer rows.Close()

	pins := make([]model.Pin, 0)
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning pin row: %w", err)
		}
		pins = append(pins, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating pins: %w", err)
	}
	return pins, nil
}

// GetPin retrieves a single pin by id, or apperror.ErrNotFound.
func (db *DB) GetPin(ctx context.Context, id int64) (*model.Pin, error) {
	pin, err := scanPin(db.conn.QueryRowContext(ctx,
		`SELECT `+pinColumns+pinFrom+` WHERE p.id = ?`, id))
	if err != nil {
		// sql.ErrNoRows is not really an error — it means "no matching row".
		// Translate it to the domain's not-found so the handler returns 404.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("pin", id)
		}
		return nil, fmt.Errorf("sqlite: getting pin %d: %w", id, err)
	}
	return pin, nil
}

// categoryColor resolves a category name to its current colour, falling back
// to repository.FallbackColor when the category is unknown. The resolved
// value is SNAPSHOTTED onto the pin — later category recolours don't touch it.
func (db *DB) categoryColor(ctx context.Context, category string) (string, error) {
	var color string
	err := db.conn.QueryRowContext(ctx,
		`SELECT color FROM categories WHERE name = ?`, category).Scan(&color)
	if err == sql.ErrNoRows {
		return repository.FallbackColor, nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: resolving colour for category %q: %w", category, err)
	}
	return color, nil
}

// CreatePin inserts a new pin, snapshotting the category's colour.
func (db *DB) CreatePin(ctx context.Context, fields repository.PinFields) (*model.Pin, error) {
	color, err := db.categoryColor(ctx, fields.Category)
	if err != nil {
		return nil, err
	}

	now := nowUTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO pins (name, description, latitude, longitude, category, color, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fields.Name, fields.Description, fields.Latitude, fields.Longitude,
		fields.Category, color, fields.CreatedBy, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating pin: %w", err)
	}

	// SQLite assigns the id; LastInsertId reads it back from the driver.
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading new pin id: %w", err)
	}

	// Read the row back through the usual joined SELECT so the response has
	// exactly the same shape as a later GET would return.
	return db.GetPin(ctx, id)
}

// UpdatePin performs a full update of the mutable fields.
//
// TWO QUERY SHAPES:
// Category is the one partially-updatable field. When fields.Category is set,
// the category AND a freshly resolved colour are written together; when it is
// empty, neither column is touched and the pin keeps its old snapshot.
func (db *DB) UpdatePin(ctx context.Context, id int64, fields repository.PinUpdate) (*model.Pin, error) {
	var result sql.Result
	var err error

	if fields.Category != "" {
		var color string
		color, err = db.categoryColor(ctx, fields.Category)
		if err != nil {
			return nil, err
		}
		result, err = db.conn.ExecContext(ctx,
			`UPDATE pins
			 SET name = ?, description = ?, latitude = ?, longitude = ?,
			     category = ?, color = ?, updated_by = ?, updated_at = ?
			 WHERE id = ?`,
			fields.Name, fields.Description, fields.Latitude, fields.Longitude,
			fields.Category, color, fields.UpdatedBy, nowUTC(), id,
		)
	} else {
		result, err = db.conn.ExecContext(ctx,
			`UPDATE pins
			 SET name = ?, description = ?, latitude = ?, longitude = ?,
			     updated_by = ?, updated_at = ?
			 WHERE id = ?`,
			fields.Name, fields.Description, fields.Latitude, fields.Longitude,
			fields.UpdatedBy, nowUTC(), id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating pin %d: %w", id, err)
	}

	// RowsAffected == 0 means the WHERE clause matched nothing → not found.
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("pin", id)
	}

	return db.GetPin(ctx, id)
}

// DeletePin removes a pin; its visits go with it via ON DELETE CASCADE.
// An absent id is reported as deleted=false, not an error — the endpoint
// layer decides that means 404.
func (db *DB) DeletePin(ctx context.Context, id int64) (bool, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM pins WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting pin %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected > 0, nil
}
