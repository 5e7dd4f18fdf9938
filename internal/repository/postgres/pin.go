package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/repository"
)

// Same joined SELECT as the sqlite backend: the pin's stored colour is
// authoritative, the LEFT JOIN supplies display-only current name/colour.
const pinColumns = `
	p.id, p.name, p.description, p.latitude, p.longitude,
	p.category, p.color, p.created_by, p.updated_by, p.created_at, p.updated_at,
	c.name, c.color`

const pinFrom = `
	FROM pins p
	LEFT JOIN categories c ON p.category = c.name`

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

func (db *DB) ListPins(ctx context.Context) ([]model.Pin, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+pinColumns+pinFrom+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing pins: %w", err)
	}
	defer rows.Close()

	pins := make([]model.Pin, 0)
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning pin row: %w", err)
		}
		pins = append(pins, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating pins: %w", err)
	}
	return pins, nil
}

func (db *DB) GetPin(ctx context.Context, id int64) (*model.Pin, error) {
	pin, err := scanPin(db.conn.QueryRowContext(ctx,
		`SELECT `+pinColumns+pinFrom+` WHERE p.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("pin", id)
		}
		return nil, fmt.Errorf("postgres: getting pin %d: %w", id, err)
	}
	return pin, nil
}

func (db *DB) categoryColor(ctx context.Context, category string) (string, error) {
	var color string
	err := db.conn.QueryRowContext(ctx,
		`SELECT color FROM categories WHERE name = $1`, category).Scan(&color)
	if err == sql.ErrNoRows {
		return repository.FallbackColor, nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: resolving colour for category %q: %w", category, err)
	}
	return color, nil
}

func (db *DB) CreatePin(ctx context.Context, fields repository.PinFields) (*model.Pin, error) {
	color, err := db.categoryColor(ctx, fields.Category)
	if err != nil {
		return nil, err
	}

	// Postgres hands the generated id back through RETURNING — there is no
	// LastInsertId with this driver.
	var id int64
	err = db.conn.QueryRowContext(ctx,
		`INSERT INTO pins (name, description, latitude, longitude, category, color, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		fields.Name, fields.Description, fields.Latitude, fields.Longitude,
		fields.Category, color, fields.CreatedBy,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pin: %w", err)
	}

	return db.GetPin(ctx, id)
}

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
			 SET name = $1, description = $2, latitude = $3, longitude = $4,
			     category = $5, color = $6, updated_by = $7, updated_at = CURRENT_TIMESTAMP
			 WHERE id = $8`,
			fields.Name, fields.Description, fields.Latitude, fields.Longitude,
			fields.Category, color, fields.UpdatedBy, id,
		)
	} else {
		result, err = db.conn.ExecContext(ctx,
			`UPDATE pins
			 SET name = $1, description = $2, latitude = $3, longitude = $4,
			     updated_by = $5, updated_at = CURRENT_TIMESTAMP
			 WHERE id = $6`,
			fields.Name, fields.Description, fields.Latitude, fields.Longitude,
			fields.UpdatedBy, id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: updating pin %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		return nil, apperror.NotFound("pin", id)
	}

	return db.GetPin(ctx, id)
}

func (db *DB) DeletePin(ctx context.Context, id int64) (bool, error) {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM pins WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting pin %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	return affected > 0, nil
}
