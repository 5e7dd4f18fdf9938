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

// CategoryService handles business logic for categories.
type CategoryService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(store repository.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		store:  store,
		logger: logger,
	}
}

// List returns all categories ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Create validates and persists a new category.
// Name and colour are both required; a duplicate name is a conflict.
func (s *CategoryService) Create(ctx context.Context, name, color string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name and color are required")
	}
	if color == "" {
		return nil, apperror.ValidationFailed("color", "category name and color are required")
	}

	category, err := s.store.CreateCategory(ctx, name, color)
	if err != nil {
		// Conflict is a normal client outcome, not a server failure — no error log.
		return nil, err
	}

	s.logger.Info("category created",
		slog.Int64("id", category.ID),
		slog.String("name", category.Name),
	)
	return category, nil
}

// Update renames/recolours an existing category.
//
// Existence is checked FIRST so a missing category is a 404 even when the new
// name would also collide (404 beats 409, matching the endpoint contract).
// Pins already tagged with this category keep their colour snapshot.
func (s *CategoryService) Update(ctx context.Context, id int64, name, color string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name and color are required")
	}
	if color == "" {
		return nil, apperror.ValidationFailed("color", "category name and color are required")
	}

	if _, err := s.store.GetCategory(ctx, id); err != nil {
		return nil, err
	}

	category, err := s.store.UpdateCategory(ctx, id, name, color)
	if err != nil {
		return nil, err
	}

	s.logger.Info("category updated",
		slog.Int64("id", category.ID),
		slog.String("name", category.Name),
	)
	return category, nil
}

// Delete removes a category. Fails with apperror.ErrInUse while any pin
// still references it, and apperror.ErrNotFound if it doesn't exist.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.NotFound("category", id)
	}

	s.logger.Info("category deleted", slog.Int64("id", id))
	return nil
}
