package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/repository"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Benefits:
// - Fast: no disk I/O
// - Isolated: each test gets its own database
// - Clean: automatically destroyed when the connection closes
//
// newTestDB is a "test helper" — the `t.Helper()` call tells Go's test
// framework to report failures at the CALLER's line number, not in here.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("failed to initialize test db: %v", err)
	}
	// t.Cleanup registers a function to run when the test finishes.
	// Like defer, but scoped to the test — works in subtests too.
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestPin creates a pin and fails the test if it errors.
func createTestPin(t *testing.T, db *DB, name, category string) *model.Pin {
	t.Helper()
	pin, err := db.CreatePin(context.Background(), repository.PinFields{
		Name:      name,
		Latitude:  52.2297,
		Longitude: 21.0122,
		Category:  category,
		CreatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("failed to create test pin: %v", err)
	}
	return pin
}

// =========================================================================
// INITIALIZE TESTS
// =========================================================================

func TestInitialize_SeedsDefaultCategories(t *testing.T) {
	db := newTestDB(t)

	categories, err := db.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != len(repository.SeedCategories) {
		t.Fatalf("seeded %d categories, want %d", len(categories), len(repository.SeedCategories))
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// A second Initialize must not error and must not duplicate the seeds.
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}

	categories, err := db.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(categories) != len(repository.SeedCategories) {
		t.Errorf("after double init: %d categories, want %d", len(categories), len(repository.SeedCategories))
	}
}

func TestInitialize_NeverOverwritesRecolouredSeed(t *testing.T) {
	db := newTestDB(t)

	// Recolour the Default category, then re-run Initialize.
	categories, _ := db.ListCategories(context.Background())
	var def *model.Category
	for i := range categories {
		if categories[i].Name == repository.DefaultCategoryName {
			def = &categories[i]
		}
	}
	if def == nil {
		t.Fatal("Default category not seeded")
	}

	if _, err := db.UpdateCategory(context.Background(), def.ID, def.Name, "#123456"); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("re-Initialize() error = %v", err)
	}

	got, err := db.GetCategory(context.Background(), def.ID)
	if err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	if got.Color != "#123456" {
		t.Errorf("seed overwrote recoloured category: color = %q, want %q", got.Color, "#123456")
	}
}

// =========================================================================
// PIN TESTS
// =========================================================================

func TestCreatePin_SnapshotsCategoryColor(t *testing.T) {
	db := newTestDB(t)

	pin := createTestPin(t, db, "Cafe", "Important")

	if pin.Category != "Important" {
		t.Errorf("Category = %q, want %q", pin.Category, "Important")
	}
	// Important is seeded with #FF0000.
	if pin.Color != "#FF0000" {
		t.Errorf("Color = %q, want %q", pin.Color, "#FF0000")
	}
	if pin.ID == 0 {
		t.Error("CreatePin() did not assign an id")
	}
	if pin.CreatedAt.IsZero() || pin.UpdatedAt.IsZero() {
		t.Error("CreatePin() did not stamp timestamps")
	}
}

func TestCreatePin_UnknownCategoryFallsBack(t *testing.T) {
	db := newTestDB(t)

	pin := createTestPin(t, db, "Mystery", "no-such-category")

	if pin.Color != repository.FallbackColor {
		t.Errorf("Color = %q, want fallback %q", pin.Color, repository.FallbackColor)
	}
	// The LEFT JOIN finds no category row, so the display fields are empty.
	if pin.CategoryName != "" || pin.CategoryColor != "" {
		t.Errorf("joined fields = (%q, %q), want empty", pin.CategoryName, pin.CategoryColor)
	}
}

func TestCreatePin_ColorIsSnapshotNotLiveReference(t *testing.T) {
	db := newTestDB(t)

	pin := createTestPin(t, db, "Cafe", "Important")

	// Recolour the category AFTER the pin was created.
	categories, _ := db.ListCategories(context.Background())
	for _, c := range categories {
		if c.Name == "Important" {
			if _, err := db.UpdateCategory(context.Background(), c.ID, c.Name, "#ABCDEF"); err != nil {
				t.Fatalf("UpdateCategory() error = %v", err)
			}
		}
	}

	got, err := db.GetPin(context.Background(), pin.ID)
	if err != nil {
		t.Fatalf("GetPin() error = %v", err)
	}
	// The pin's own colour is the snapshot from creation time...
	if got.Color != "#FF0000" {
		t.Errorf("pin Color = %q, want snapshot %q", got.Color, "#FF0000")
	}
	// ...while the joined display colour reflects the category's current state.
	if got.CategoryColor != "#ABCDEF" {
		t.Errorf("joined CategoryColor = %q, want current %q", got.CategoryColor, "#ABCDEF")
	}
}

func TestListPins_NewestFirst(t *testing.T) {
	db := newTestDB(t)

	createTestPin(t, db, "first", "Default")
	time.Sleep(5 * time.Millisecond) // distinct created_at values
	createTestPin(t, db, "second", "Default")

	pins, err := db.ListPins(context.Background())
	if err != nil {
		t.Fatalf("ListPins() error = %v", err)
	}
	if len(pins) != 2 {
		t.Fatalf("ListPins() returned %d pins, want 2", len(pins))
	}
	if pins[0].Name != "second" || pins[1].Name != "first" {
		t.Errorf("order = [%q, %q], want newest first", pins[0].Name, pins[1].Name)
	}
}

func TestGetPin_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetPin(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdatePin_WithoutCategoryKeepsSnapshot(t *testing.T) {
	db := newTestDB(t)

	pin := createTestPin(t, db, "Cafe", "Important")

	updated, err := db.UpdatePin(context.Background(), pin.ID, repository.PinUpdate{
		Name:      "Renamed Cafe",
		Latitude:  50.0,
		Longitude: 19.9,
		UpdatedBy: "bob",
		// Category deliberately empty — the stored category/colour must survive.
	})
	if err != nil {
		t.Fatalf("UpdatePin() error = %v", err)
	}

	if updated.Name != "Renamed Cafe" {
		t.Errorf("Name = %q, want %q", updated.Name, "Renamed Cafe")
	}
	if updated.Category != "Important" {
		t.Errorf("Category = %q, want untouched %q", updated.Category, "Important")
	}
	if updated.Color != "#FF0000" {
		t.Errorf("Color = %q, want untouched %q", updated.Color, "#FF0000")
	}
	if updated.UpdatedBy != "bob" {
		t.Errorf("UpdatedBy = %q, want %q", updated.UpdatedBy, "bob")
	}
}

func TestUpdatePin_WithCategoryResolvesNewColor(t *testing.T) {
	db := newTestDB(t)

	pin := createTestPin(t, db, "Cafe", "Important")

	updated, err := db.UpdatePin(context.Background(), pin.ID, repository.PinUpdate{
		Name:      "Cafe",
		Latitude:  pin.Latitude,
		Longitude: pin.Longitude,
		Category:  "Visited",
		UpdatedBy: "bob",
	})
	if err != nil {
		t.Fatalf("UpdatePin() error = %v", err)
	}
	if updated.Category != "Visited" {
		t.Errorf("Category = %q, want %q", updated.Category, "Visited")
	}
	if updated.Color != "#00FF00" {
		t.Errorf("Color = %q, want Visited's %q", updated.Color, "#00FF00")
	}
}

func TestUpdatePin_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpdatePin(context.Background(), 12345, repository.PinUpdate{
		Name: "ghost", UpdatedBy: "bob",
	})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeletePin_CascadesVisits(t *testing.T) {
	db := newTestDB(t)

	pin := createTestPin(t, db, "Cafe", "Default")
	if _, err := db.AddVisit(context.Background(), pin.ID, "alice", "nice spot"); err != nil {
		t.Fatalf("AddVisit() error = %v", err)
	}

	deleted, err := db.DeletePin(context.Background(), pin.ID)
	if err != nil {
		t.Fatalf("DeletePin() error = %v", err)
	}
	if !deleted {
		t.Fatal("DeletePin() = false, want true")
	}

	visits, err := db.ListVisits(context.Background(), pin.ID)
	if err != nil {
		t.Fatalf("ListVisits() error = %v", err)
	}
	if len(visits) != 0 {
		t.Errorf("cascade left %d visits behind", len(visits))
	}
}

func TestDeletePin_AbsentIsNotAnError(t *testing.T) {
	db := newTestDB(t)

	deleted, err := db.DeletePin(context.Background(), 4242)
	if err != nil {
		t.Fatalf("DeletePin() error = %v", err)
	}
	if deleted {
		t.Error("DeletePin() = true for absent pin, want false")
	}
}

// =========================================================================
// VISIT TESTS
// =========================================================================

func TestListVisits_CappedAtTenNewestFirst(t *testing.T) {
	db := newTestDB(t)
	pin := createTestPin(t, db, "Busy place", "Default")

	for i := 0; i < 13; i++ {
		if _, err := db.AddVisit(context.Background(), pin.ID, fmt.Sprintf("visitor-%d", i), ""); err != nil {
			t.Fatalf("AddVisit() error = %v", err)
		}
	}

	visits, err := db.ListVisits(context.Background(), pin.ID)
	if err != nil {
		t.Fatalf("ListVisits() error = %v", err)
	}
	if len(visits) != repository.VisitHistoryLimit {
		t.Fatalf("ListVisits() returned %d, want cap %d", len(visits), repository.VisitHistoryLimit)
	}
	// Newest first: the most recent visitor leads, and timestamps never ascend.
	if visits[0].Username != "visitor-12" {
		t.Errorf("visits[0] = %q, want %q", visits[0].Username, "visitor-12")
	}
	for i := 1; i < len(visits); i++ {
		if visits[i].VisitedAt.After(visits[i-1].VisitedAt) {
			t.Errorf("visits[%d] is newer than visits[%d] — not newest-first", i, i-1)
		}
	}
}

// =========================================================================
// CATEGORY TESTS
// =========================================================================

func TestCreateCategory_DuplicateNameConflicts(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.CreateCategory(context.Background(), "Cafes", "#112233"); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	_, err := db.CreateCategory(context.Background(), "Cafes", "#445566")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate create error = %v, want ErrConflict", err)
	}

	// The store still contains exactly one category with that name.
	categories, _ := db.ListCategories(context.Background())
	count := 0
	for _, c := range categories {
		if c.Name == "Cafes" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("found %d categories named Cafes, want 1", count)
	}
}

func TestUpdateCategory_CollisionConflicts(t *testing.T) {
	db := newTestDB(t)

	a, _ := db.CreateCategory(context.Background(), "Alpha", "#111111")
	if _, err := db.CreateCategory(context.Background(), "Beta", "#222222"); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	_, err := db.UpdateCategory(context.Background(), a.ID, "Beta", "#111111")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("rename collision error = %v, want ErrConflict", err)
	}
}

func TestDeleteCategory_BlockedWhileReferenced(t *testing.T) {
	db := newTestDB(t)

	cat, _ := db.CreateCategory(context.Background(), "Parks", "#00AA00")
	pin := createTestPin(t, db, "Central Park", "Parks")

	_, err := db.DeleteCategory(context.Background(), cat.ID)
	if !errors.Is(err, apperror.ErrInUse) {
		t.Fatalf("delete-in-use error = %v, want ErrInUse", err)
	}

	// Both the category and the referencing pin are unchanged.
	if _, err := db.GetCategory(context.Background(), cat.ID); err != nil {
		t.Errorf("category disappeared after blocked delete: %v", err)
	}
	got, err := db.GetPin(context.Background(), pin.ID)
	if err != nil {
		t.Fatalf("GetPin() error = %v", err)
	}
	if got.Category != "Parks" {
		t.Errorf("pin category = %q, want %q", got.Category, "Parks")
	}
}

func TestDeleteCategory_AllowedOnceUnreferenced(t *testing.T) {
	db := newTestDB(t)

	cat, _ := db.CreateCategory(context.Background(), "Parks", "#00AA00")
	pin := createTestPin(t, db, "Central Park", "Parks")

	if _, err := db.DeletePin(context.Background(), pin.ID); err != nil {
		t.Fatalf("DeletePin() error = %v", err)
	}

	deleted, err := db.DeleteCategory(context.Background(), cat.ID)
	if err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if !deleted {
		t.Error("DeleteCategory() = false, want true")
	}
}

func TestDeleteCategory_AbsentIsNotAnError(t *testing.T) {
	db := newTestDB(t)

	deleted, err := db.DeleteCategory(context.Background(), 31337)
	if err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if deleted {
		t.Error("DeleteCategory() = true for absent category, want false")
	}
}
