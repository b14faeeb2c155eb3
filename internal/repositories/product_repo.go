package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductOrder selects the sort order of ListSorted.
type ProductOrder int

const (
	// OrderNewest sorts by creation time, newest first.
	OrderNewest ProductOrder = iota
	// OrderTopRated sorts by rating, best first.
	OrderTopRated
)

// ProductRepository defines the interface for product data access.
// Products are always returned with their reviews.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// Search returns one page of products whose name contains keyword
	// (case-insensitive; empty matches all) and the total number of matches.
	Search(ctx context.Context, keyword string, offset, limit int) ([]models.Product, int64, error)
	// ListSorted returns up to limit products. withCategory resolves CategoryRef.
	ListSorted(ctx context.Context, order ProductOrder, limit int, withCategory bool) ([]models.Product, error)
	// Update overwrites the editable fields of the product. Reviews and the
	// values derived from them are left alone.
	Update(ctx context.Context, product *models.Product) error
	// Delete removes the product together with its reviews.
	Delete(ctx context.Context, id string) error
	// AppendReview atomically adds review to the product and recomputes
	// NumReviews and Rating. It returns the updated product.
	AppendReview(ctx context.Context, productID string, review models.Review) (*models.Product, error)
}
