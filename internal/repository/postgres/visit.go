package postgres

import (
	"context"
	"fmt"

	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/repository"
)

func (db *DB) AddVisit(ctx context.Context, pinID int64, username, comment string) (*model.Visit, error) {
	var v model.Visit
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO visit_history (pin_id, username, comment)
		 VALUES ($1, $2, $3)
		 RETURNING id, pin_id, username, comment, visited_at`,
		pinID, username, comment,
	).Scan(&v.ID, &v.PinID, &v.Username, &v.Comment, &v.VisitedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: adding visit to pin %d: %w", pinID, err)
	}
	return &v, nil
}

func (db *DB) ListVisits(ctx context.Context, pinID int64) ([]model.Visit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, pin_id, username, comment, visited_at
		 FROM visit_history
		 WHERE pin_id = $1
		 ORDER BY visited_at DESC, id DESC
		 LIMIT $2`,
		pinID, repository.VisitHistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing visits for pin %d: %w", pinID, err)
	}
	defer rows.Close()

	visits := make([]model.Visit, 0, repository.VisitHistoryLimit)
	for rows.Next() {
		var v model.Visit
		if err := rows.Scan(&v.ID, &v.PinID, &v.Username, &v.Comment, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning visit row: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating visits: %w", err)
	}
	return visits, nil
}
