// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Pin represents a geotagged point of interest on the shared map.
//
// The `json:"..."` tags match the column names the API has always exposed
// (snake_case), so existing map clients keep working unchanged.
//
// CATEGORY vs CATEGORY_NAME:
// Category and Color are the pin's OWN stored values — Color is a snapshot of
// the category's colour taken when the pin was written. CategoryName and
// CategoryColor come from a LEFT JOIN at read time and reflect the category's
// CURRENT state. The map marker uses the stored Color; the joined fields exist
// only for display. Changing a category's colour later does not repaint
// existing pins.
type Pin struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Category    string  `json:"category"`
	Color       string  `json:"color"`

	// Audit fields. CreatedBy is required at creation; UpdatedBy is set on
	// every update and empty until the first one.
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined display fields (see note above). Empty when the referenced
	// category no longer exists — the LEFT JOIN finds no row.
	CategoryName  string `json:"category_name,omitempty"`
	CategoryColor string `json:"category_color,omitempty"`
}

// Category is a named, coloured label applied to pins.
// Name is unique across all categories; Color is a 7-char hex code ("#FF5733").
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Visit is an append-only log entry recording that a named person visited a pin.
// Visits are never updated or deleted directly — they disappear only when their
// pin is deleted (the database cascades the delete).
type Visit struct {
	ID        int64     `json:"id"`
	PinID     int64     `json:"pin_id"`
	Username  string    `json:"username"`
	Comment   string    `json:"comment,omitempty"`
	VisitedAt time.Time `json:"visited_at"`
}
