// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses, broadcasts
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the store
//
// The service receives the repository.Store INTERFACE, not a concrete
// backend — it has no idea whether pins land in a SQLite file or a Postgres
// cluster, and the tests exploit that by injecting an in-memory mock.
//
// The service also knows nothing about the real-time channel. A mutation
// returns the full created/updated row; broadcasting it is the endpoint
// layer's job. This keeps every business rule testable without a live
// websocket in the room.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/pinboard/internal/apperror"
	"github.com/sakif/pinboard/internal/model"
	"github.com/sakif/pinboard/internal/repository"
)

// PinService handles business logic for pins and their visit history.
type PinService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewPinService creates a new PinService. The caller decides WHICH store
// implementation to inject (sqlite, postgres, mock for tests).
func NewPinService(store repository.Store, logger *slog.Logger) *PinService {
	return &PinService{
		store:  store,
		logger: logger,
	}
}

// CreatePinParams carries the caller-supplied fields for a new pin.
//
// WHY POINTERS FOR COORDINATES?
// JSON cannot distinguish `"latitude": 0` from a missing field once decoded
// into a float64 — both come out as zero. Decoding into *float64 keeps the
// difference: nil means the client never sent the field, which is a
// validation error; a pointer to 0.0 is a legitimate equator coordinate.
type CreatePinParams struct {
	Name        string
	Description string
	Latitude    *float64
	Longitude   *float64
	Category    string
	CreatedBy   string
}

// UpdatePinParams mirrors CreatePinParams for a full update. Category empty
// means "leave the stored category and its colour snapshot alone".
type UpdatePinParams struct {
	Name        string
	Description string
	Latitude    *float64
	Longitude   *float64
	Category    string
	UpdatedBy   string
}

// List returns all pins, newest first.
func (s *PinService) List(ctx context.Context) ([]model.Pin, error) {
	pins, err := s.store.ListPins(ctx)
	if err != nil {
		s.logger.Error("failed to list pins", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	return pins, nil
}

// Get returns a single pin or apperror.ErrNotFound.
func (s *PinService) Get(ctx context.Context, id int64) (*model.Pin, error) {
	return s.store.GetPin(ctx, id)
}

// Create validates and persists a new pin.
//
// Validation here, not in the handler: name and the actor name are required
// and trimmed; coordinates must be present. NOTE: no geographic range check
// is performed — latitude 9000 is accepted. That matches the system this one
// replaces; tightening it is a product question, not a code fix.
func (s *PinService) Create(ctx context.Context, params CreatePinParams) (*model.Pin, error) {
	name := strings.TrimSpace(params.Name)
	createdBy := strings.TrimSpace(params.CreatedBy)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name, latitude, longitude and created_by are required")
	}
	if params.Latitude == nil {
		return nil, apperror.ValidationFailed("latitude", "name, latitude, longitude and created_by are required")
	}
	if params.Longitude == nil {
		return nil, apperror.ValidationFailed("longitude", "name, latitude, longitude and created_by are required")
	}
	if createdBy == "" {
		return nil, apperror.ValidationFailed("created_by", "name, latitude, longitude and created_by are required")
	}

	// Default category when the client omitted it.
	category := strings.TrimSpace(params.Category)
	if category == "" {
		category = repository.DefaultCategoryName
	}

	pin, err := s.store.CreatePin(ctx, repository.PinFields{
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		Latitude:    *params.Latitude,
		Longitude:   *params.Longitude,
		Category:    category,
		CreatedBy:   createdBy,
	})
	if err != nil {
		s.logger.Error("failed to create pin",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating pin: %w", err)
	}

	s.logger.Info("pin created",
		slog.Int64("id", pin.ID),
		slog.String("name", pin.Name),
		slog.String("category", pin.Category),
	)
	return pin, nil
}

// Update validates and fully replaces a pin's mutable fields.
//
// STRATEGY: "Fetch then update" — confirming existence first means a missing
// pin surfaces as not-found BEFORE any write, matching the contract that the
// caller (not the store) signals 404.
func (s *PinService) Update(ctx context.Context, id int64, params UpdatePinParams) (*model.Pin, error) {
	name := strings.TrimSpace(params.Name)
	updatedBy := strings.TrimSpace(params.UpdatedBy)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name, latitude, longitude and updated_by are required")
	}
	if params.Latitude == nil {
		return nil, apperror.ValidationFailed("latitude", "name, latitude, longitude and updated_by are required")
	}
	if params.Longitude == nil {
		return nil, apperror.ValidationFailed("longitude", "name, latitude, longitude and updated_by are required")
	}
	if updatedBy == "" {
		return nil, apperror.ValidationFailed("updated_by", "name, latitude, longitude and updated_by are required")
	}

	if _, err := s.store.GetPin(ctx, id); err != nil {
		return nil, err
	}

	pin, err := s.store.UpdatePin(ctx, id, repository.PinUpdate{
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		Latitude:    *params.Latitude,
		Longitude:   *params.Longitude,
		Category:    strings.TrimSpace(params.Category),
		UpdatedBy:   updatedBy,
	})
	if err != nil {
		s.logger.Error("failed to update pin",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating pin %d: %w", id, err)
	}

	s.logger.Info("pin updated", slog.Int64("id", pin.ID), slog.String("name", pin.Name))
	return pin, nil
}

// Delete removes a pin (and, via cascade, its visits).
// Returns apperror.ErrNotFound if the pin doesn't exist.
func (s *PinService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeletePin(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete pin",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting pin %d: %w", id, err)
	}
	if !deleted {
		return apperror.NotFound("pin", id)
	}

	s.logger.Info("pin deleted", slog.Int64("id", id))
	return nil
}

// Visit appends a visit to a pin's history.
// Requires a non-empty username and an existing pin.
func (s *PinService) Visit(ctx context.Context, id int64, username, comment string) (*model.Visit, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	if _, err := s.store.GetPin(ctx, id); err != nil {
		return nil, err
	}

	visit, err := s.store.AddVisit(ctx, id, username, strings.TrimSpace(comment))
	if err != nil {
		s.logger.Error("failed to record visit",
			slog.Int64("pin_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("recording visit for pin %d: %w", id, err)
	}

	s.logger.Info("visit recorded", slog.Int64("pin_id", id), slog.String("username", username))
	return visit, nil
}

// History returns a pin's most recent visits (capped, newest first).
// The pin must exist — history of a deleted pin is a 404, not an empty list.
func (s *PinService) History(ctx context.Context, id int64) ([]model.Visit, error) {
	if _, err := s.store.GetPin(ctx, id); err != nil {
		return nil, err
	}

	visits, err := s.store.ListVisits(ctx, id)
	if err != nil {
		s.logger.Error("failed to list visits",
			slog.Int64("pin_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing visits for pin %d: %w", id, err)
	}
	return visits, nil
}
