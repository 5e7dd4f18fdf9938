// Package postgres implements the Store contract against a networked
// PostgreSQL database.
//
// Same contract, different backend: everything the sqlite package promises,
// this package promises identically. The service and handler layers cannot
// tell which one they are talking to.
//
// DRIVER CHOICE:
// We go through database/sql with the pgx stdlib adapter rather than the
// native pgx API. That keeps every query here shaped exactly like its sqlite
// twin (ExecContext/QueryContext/Scan) — only the placeholders ($1 vs ?) and
// a few DDL types differ.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Registers the "pgx" driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sakif/pinboard/internal/repository"
)

// Compile-time check that *DB satisfies the Store contract.
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB pool connected to PostgreSQL.
type DB struct {
	conn *sql.DB
}

// New opens a connection pool for the given DSN and verifies connectivity.
// The DSN comes from the environment (DATABASE_URL and friends) — resolving
// it is the server package's job, not ours.
func New(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres: no connection string configured")
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}

	// Force a real connection now so a bad DSN fails at startup, not on the
	// first request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Initialize creates the tables and seeds the default categories inside a
// single transaction — either the whole schema exists afterwards or none of
// it does. Idempotent: IF NOT EXISTS + ON CONFLICT DO NOTHING make a second
// call a no-op.
func (db *DB) Initialize(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning init transaction: %w", err)
	}
	// Rollback after Commit is a harmless no-op; this covers every early return.
	defer tx.Rollback()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS pins (
			id          SERIAL PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,
			category    VARCHAR(100) NOT NULL DEFAULT 'Default',
			color       VARCHAR(7) NOT NULL DEFAULT '#FF5733',
			created_by  VARCHAR(255) NOT NULL,
			updated_by  VARCHAR(255) NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS visit_history (
			id         SERIAL PRIMARY KEY,
			pin_id     INTEGER NOT NULL REFERENCES pins(id) ON DELETE CASCADE,
			username   VARCHAR(255) NOT NULL,
			comment    TEXT NOT NULL DEFAULT '',
			visited_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visit_history_pin_id ON visit_history(pin_id)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id         SERIAL PRIMARY KEY,
			name       VARCHAR(100) NOT NULL UNIQUE,
			color      VARCHAR(7) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: creating schema: %w", err)
		}
	}

	for _, c := range repository.SeedCategories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, color) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			c.Name, c.Color,
		)
		if err != nil {
			return fmt.Errorf("postgres: seeding category %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing init transaction: %w", err)
	}
	return nil
}

// Close closes the connection pool. Idempotent.
func (db *DB) Close() error {
	return db.conn.Close()
}

// isUniqueViolation reports whether err is PostgreSQL's unique_violation
// (SQLSTATE 23505), the typed equivalent of SQLite's "UNIQUE constraint
// failed" message.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
