package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/models"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// Category references are resolved through categories when set.
type MemoryProductRepository struct {
	products   map[string]models.Product
	categories CategoryRepository
	mu         sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository(categories CategoryRepository) *MemoryProductRepository {
	return &MemoryProductRepository{
		products:   make(map[string]models.Product),
		categories: categories,
	}
}

func cloneProduct(p models.Product) models.Product {
	p.Reviews = append([]models.Review(nil), p.Reviews...)
	if p.Reviews == nil {
		p.Reviews = []models.Review{}
	}
	p.CategoryRef = nil
	return p
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, ok := r.products[product.ID]; ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrDuplicate)
	}
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	product.Version = 1
	product.Reviews = []models.Review{}
	product.RecomputeRating()
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	product = cloneProduct(product)
	return &product, nil
}

// sorted returns clones of all products accepted by keep, in order.
// Callers must hold the read lock.
func (r *MemoryProductRepository) sorted(order ProductOrder, keep func(models.Product) bool) []models.Product {
	list := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			list = append(list, cloneProduct(p))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if order == OrderTopRated {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.NumReviews != b.NumReviews {
				return a.NumReviews > b.NumReviews
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return list
}

// Search returns one page of products whose name contains keyword.
func (r *MemoryProductRepository) Search(_ context.Context, keyword string, offset, limit int) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(keyword)
	matches := r.sorted(OrderNewest, func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	})
	total := int64(len(matches))
	if offset >= len(matches) {
		return []models.Product{}, total, nil
	}
	end := len(matches)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end], total, nil
}

// ListSorted returns up to limit products in the requested order.
func (r *MemoryProductRepository) ListSorted(ctx context.Context, order ProductOrder, limit int, withCategory bool) ([]models.Product, error) {
	r.mu.RLock()
	list := r.sorted(order, func(models.Product) bool { return true })
	r.mu.RUnlock()

	if limit >= 0 && len(list) > limit {
		list = list[:limit]
	}
	if withCategory && r.categories != nil {
		for i := range list {
			category, err := r.categories.GetByID(ctx, list[i].CategoryID)
			if err == nil {
				list[i].CategoryRef = category
			}
		}
	}
	return list, nil
}

// Update modifies the editable fields of an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrNotFound)
	}
	stored.Name = product.Name
	stored.Description = product.Description
	stored.Quantity = product.Quantity
	stored.Price = product.Price
	stored.CategoryID = product.CategoryID
	stored.Brand = product.Brand
	stored.Image = product.Image
	stored.Version++
	stored.UpdatedAt = time.Now()
	r.products[product.ID] = stored
	return nil
}

// Delete removes a product by its ID.
func (r *MemoryProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

// AppendReview adds review under the write lock, so concurrent reviews of the
// same product are applied one after another.
func (r *MemoryProductRepository) AppendReview(_ context.Context, productID string, review models.Review) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[productID]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", productID, ErrNotFound)
	}
	if stored.HasReviewFrom(review.UserID) {
		return nil, ErrAlreadyReviewed
	}
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	review.ProductID = productID
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}

	stored = cloneProduct(stored)
	stored.Reviews = append(stored.Reviews, review)
	stored.RecomputeRating()
	stored.Version++
	r.products[productID] = stored

	result := cloneProduct(stored)
	return &result, nil
}
