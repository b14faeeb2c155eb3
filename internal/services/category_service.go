package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// CategoryService handles business logic related to categories.
type CategoryService struct {
	repo   repositories.CategoryRepository
	cache  CategoryCache
	events EventPublisher
}

// NewCategoryService creates a new CategoryService. cache and events may be nil.
func NewCategoryService(repo repositories.CategoryRepository, cache CategoryCache, events EventPublisher) *CategoryService {
	return &CategoryService{
		repo:   repo,
		cache:  cache,
		events: events,
	}
}

// Create adds a category with a unique name.
func (s *CategoryService) Create(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("Name is required")
	}

	_, err := s.repo.GetByName(ctx, name)
	switch {
	case err == nil:
		return nil, conflictError(nil, "category already exists")
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to look up category: %w", err)
	}

	category := &models.Category{Name: name}
	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, conflictError(err, "category already exists")
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidate(ctx)
	publishEvent(s.events, EventCategoryCreated, map[string]interface{}{
		"id":   category.ID,
		"name": category.Name,
	})
	return category, nil
}

// Rename changes the name of an existing category.
func (s *CategoryService) Rename(ctx context.Context, id, name string) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError(err, "category not found")
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("Name is required")
	}
	category.Name = name
	if err := s.repo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, conflictError(err, "category already exists")
		case errors.Is(err, repositories.ErrNotFound):
			return nil, notFoundError(err, "category not found")
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidate(ctx)
	publishEvent(s.events, EventCategoryUpdated, map[string]interface{}{
		"id":   category.ID,
		"name": category.Name,
	})
	return category, nil
}

// Remove deletes a category and returns it, or nil when there was nothing to
// delete. Products that reference the category are not touched.
func (s *CategoryService) Remove(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete category: %w", err)
	}

	s.invalidate(ctx)
	publishEvent(s.events, EventCategoryDeleted, map[string]interface{}{
		"id":   category.ID,
		"name": category.Name,
	})
	return category, nil
}

// List returns all categories, served from the cache when possible. A listing
// read from the store is cached under the generation seen before the read.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var generation int64
	fill := false
	if s.cache != nil {
		categories, gen, ok, err := s.cache.GetCategories(ctx)
		switch {
		case err != nil:
			log.WithError(err).Warn("category cache read failed")
		case ok:
			return categories, nil
		default:
			generation, fill = gen, true
		}
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if fill {
		if err := s.cache.SetCategories(ctx, generation, categories); err != nil {
			log.WithError(err).Warn("category cache write failed")
		}
	}
	return categories, nil
}

// GetByID returns the category, or nil when it does not exist.
func (s *CategoryService) GetByID(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCategories(ctx); err != nil {
		log.WithError(err).Warn("category cache invalidation failed")
	}
}
