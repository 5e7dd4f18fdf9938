package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/repository"
)

// AddVisit appends a visit to a pin's history. Visits are append-only: there
// is no update or direct delete path, only the cascade when the pin goes.
func (db *DB) AddVisit(ctx context.Context, pinID int64, username, comment string) (*model.Visit, error) {
	now := nowUTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO visit_history (pin_id, username, comment, visited_at) VALUES (?, ?, ?, ?)`,
		pinID, username, comment, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: adding visit to pin %d: %w", pinID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading new visit id: %w", err)
	}

	return &model.Visit{
		ID:        id,
		PinID:     pinID,
		Username:  username,
		Comment:   comment,
		VisitedAt: now,
	}, nil
}

// ListVisits returns a pin's most recent visits, newest first, capped at
// repository.VisitHistoryLimit. An unknown pin simply has no visits — the
// existence check is the caller's job.
func (db *DB) ListVisits(ctx context.Context, pinID int64) ([]model.Visit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, pin_id, username, comment, visited_at
		 FROM visit_history
		 WHERE pin_id = ?
		 ORDER BY visited_at DESC, id DESC
		 LIMIT ?`,
		pinID, repository.VisitHistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing visits for pin %d: %w", pinID, err)
	}
	defer rows.Close()

	visits := make([]model.Visit, 0, repository.VisitHistoryLimit)
	for rows.Next() {
		var v model.Visit
		if err := rows.Scan(&v.ID, &v.PinID, &v.Username, &v.Comment, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning visit row: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating visits: %w", err)
	}
	return visits, nil
}
