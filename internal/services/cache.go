package services

import (
	"context"

	"storefront/internal/models"
)

// CategoryCache caches the full category listing. Entries belong to a
// generation; InvalidateCategories starts a new one, so a listing read before
// an invalidation can never be stored as current after it.
type CategoryCache interface {
	// GetCategories returns the current generation and reports ok=false on a
	// cache miss.
	GetCategories(ctx context.Context) (categories []models.Category, generation int64, ok bool, err error)
	// SetCategories stores categories under generation. Writes for a
	// generation that is no longer current are never served.
	SetCategories(ctx context.Context, generation int64, categories []models.Category) error
	InvalidateCategories(ctx context.Context) error
}
