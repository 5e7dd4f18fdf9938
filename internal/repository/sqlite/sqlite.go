// Package sqlite implements the Store contract using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database — it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage. Perfect for:
// - Running the pin board on a single machine with zero infrastructure
// - Development and testing (use ":memory:" for an in-memory DB)
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// The sqlite package's init() function registers itself with database/sql as a
	// driver named "sqlite". After this import, sql.Open("sqlite", ...) knows how
	// to talk to SQLite.
	_ "modernc.org/sqlite"

	"github.com/sakif/pinboard/internal/repository"
)

// Compile-time check that *DB satisfies the Store contract.
// `var _ X = (*Y)(nil)` fails the build immediately if a method is missing,
// instead of failing much later at the call site.
var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides the Store methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database and configures the connection.
//
// dbPath examples:
//   - "data/pins.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (great for tests, lost on close)
//
// sql.Open() does NOT actually open a connection — it just creates a pool
// manager. We call Ping() to force an immediate connection so a bad path or
// permissions problem surfaces here, not on the first request.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode:
	// Default SQLite locks the entire database during writes. WAL mode allows
	// concurrent reads WHILE a write is happening — important for a web server
	// where overlapping requests hit the same handle.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// We need them ON: visit_history.pin_id cascades delete from pins.id, and
	// without this pragma the cascade silently never happens.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Initialize creates the tables if absent and seeds the default categories.
//
// IDEMPOTENCY:
// CREATE TABLE IF NOT EXISTS never errors on an existing table, and the seed
// uses INSERT OR IGNORE keyed on the unique category name — a second call
// changes nothing and never overwrites a category someone has recoloured.
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pins (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			latitude    REAL NOT NULL,
			longitude   REAL NOT NULL,
			category    TEXT NOT NULL DEFAULT 'Default',
			color       TEXT NOT NULL DEFAULT '#FF5733',
			created_by  TEXT NOT NULL,
			updated_by  TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating pins table: %w", err)
	}

	// ON DELETE CASCADE: deleting a pin deletes its visits in the same
	// statement. Requires the foreign_keys pragma set in New().
	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS visit_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			pin_id     INTEGER NOT NULL REFERENCES pins(id) ON DELETE CASCADE,
			username   TEXT NOT NULL,
			comment    TEXT NOT NULL DEFAULT '',
			visited_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_visit_history_pin_id ON visit_history(pin_id);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating visit_history table: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS categories (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			color      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: creating categories table: %w", err)
	}

	return db.seedCategories(ctx)
}

// seedCategories inserts the default category set with insert-or-ignore
// semantics. Timestamps are stamped in Go (not DEFAULT CURRENT_TIMESTAMP) so
// they scan back into time.Time the same way every other row does.
func (db *DB) seedCategories(ctx context.Context) error {
	for _, c := range repository.SeedCategories {
		_, err := db.conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (name, color, created_at) VALUES (?, ?, ?)`,
			c.Name, c.Color, nowUTC(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: seeding category %q: %w", c.Name, err)
		}
	}
	return nil
}

// Close closes the database connection pool. Safe to call more than once —
// sql.DB.Close is idempotent.
func (db *DB) Close() error {
	return db.conn.Close()
}

// nowUTC stamps timestamps in Go rather than relying on SQL CURRENT_TIMESTAMP,
// so every row round-trips through the driver as time.Time.
func nowUTC() time.Time {
	return time.Now().UTC()
}
