// Package repository defines the persistence contract for the pin board.
//
// THE DUAL-BACKEND PATTERN:
// Two interchangeable implementations satisfy the Store interface:
//   - repository/sqlite   — embedded, single-file database (local development)
//   - repository/postgres — networked relational database (hosted deployments)
//
// Everything above this layer programs against the interface and never learns
// which backend it got. Swapping backends is a wiring decision in the server
// package, not a code change anywhere else.
package repository

import (
	"context"

	"github.com/sakif/pinboard/internal/model"
)

// DefaultCategoryName is the sentinel category applied to pins created
// without an explicit category.
const DefaultCategoryName = "Default"

// FallbackColor is the hex colour stored on a pin whose category cannot be
// resolved at write time (e.g. the category was deleted between the client
// loading the list and submitting the pin).
const FallbackColor = "#FF5733"

// SeedCategory is one row of the default category set.
type SeedCategory struct {
	Name  string
	Color string
}

// SeedCategories are inserted with insert-or-ignore semantics the first time
// a store initializes. Re-running initialization never duplicates them and
// never overwrites a row whose name already exists.
var SeedCategories = []SeedCategory{
	{Name: "Default", Color: "#FF5733"},
	{Name: "Important", Color: "#FF0000"},
	{Name: "Visited", Color: "#00FF00"},
	{Name: "To Check", Color: "#FFFF00"},
	{Name: "Completed", Color: "#0000FF"},
	{Name: "Problematic", Color: "#FF8C00"},
}

// VisitHistoryLimit caps how many visits a read path returns.
// Visits are append-only; only the most recent ones are interesting.
const VisitHistoryLimit = 10

// PinFields carries the caller-supplied values for creating a pin.
// The service layer has already trimmed strings and applied the default
// category by the time a Store sees this.
type PinFields struct {
	Name        string
	Description string
	Latitude    float64
	Longitude   float64
	Category    string
	CreatedBy   string
}

// PinUpdate carries the values for a full pin update. Category is the one
// partially-updatable field: when empty, the stored category AND its
// snapshotted colour are left untouched.
type PinUpdate struct {
	Name        string
	Description string
	Latitude    float64
	Longitude   float64
	Category    string
	UpdatedBy   string
}

// Store is the backend-agnostic persistence contract.
//
// ERROR CONVENTIONS:
// Implementations return apperror values for domain outcomes (not-found,
// conflict, in-use) and wrapped driver errors for infrastructure failures.
// "Absent" on delete is NOT an error — it comes back as deleted=false, which
// the endpoint layer turns into a 404.
type Store interface {
	// Initialize creates tables if absent and seeds the default categories.
	// Idempotent: calling it twice never duplicates rows and never errors.
	Initialize(ctx context.Context) error

	// ListPins returns all pins newest-first, each LEFT JOINed with its
	// category's current name/colour for the display-only joined fields.
	ListPins(ctx context.Context) ([]model.Pin, error)
	GetPin(ctx context.Context, id int64) (*model.Pin, error)

	// CreatePin resolves the category to its current colour (FallbackColor
	// when unknown), persists both, and stamps created_at/updated_at.
	CreatePin(ctx context.Context, fields PinFields) (*model.Pin, error)
	UpdatePin(ctx context.Context, id int64, fields PinUpdate) (*model.Pin, error)

	// DeletePin cascades to the pin's visits. Absent id → (false, nil).
	DeletePin(ctx context.Context, id int64) (bool, error)

	AddVisit(ctx context.Context, pinID int64, username, comment string) (*model.Visit, error)
	// ListVisits returns at most VisitHistoryLimit visits, newest first.
	ListVisits(ctx context.Context, pinID int64) ([]model.Visit, error)

	// ListCategories returns all categories ordered by name ascending.
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	CreateCategory(ctx context.Context, name, color string) (*model.Category, error)
	// UpdateCategory does NOT retroactively repaint pins tagged with this
	// category — pin colours are snapshots taken at pin-write time.
	UpdateCategory(ctx context.Context, id int64, name, color string) (*model.Category, error)
	// DeleteCategory refuses (apperror.ErrInUse) while any pin references the
	// category by name. The count check and the delete are two statements,
	// not one transaction — a pin created in between wins the race.
	DeleteCategory(ctx context.Context, id int64) (bool, error)

	// Close releases the underlying handle. Safe to call more than once.
	Close() error
}
