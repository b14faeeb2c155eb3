package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

const (
	// PageSize is the number of products per page of List.
	PageSize       = 6
	featuredLimit  = 12
	highlightLimit = 4
)

// ProductInput carries the editable fields of a product. Every field is
// required; validation reports the first missing one in declaration order.
type ProductInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Quantity    *int     `json:"quantity" validate:"required,gte=0"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Category    string   `json:"category" validate:"required"`
	Brand       string   `json:"brand" validate:"required"`
	Image       string   `json:"image" validate:"required"`
}

// ReviewInput is a rating with an optional comment.
type ReviewInput struct {
	Rating  *float64 `json:"rating" validate:"required,min=1,max=5"`
	Comment string   `json:"comment"`
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	HasMore  bool             `json:"hasMore"`
}

// FeaturedProduct is a product with its category resolved. Category is nil
// when the referenced category no longer exists.
type FeaturedProduct struct {
	models.Product
	Category *models.Category `json:"category"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo       repositories.ProductRepository
	categories repositories.CategoryRepository
	events     EventPublisher
}

// NewProductService creates a new ProductService. events may be nil.
func NewProductService(repo repositories.ProductRepository, categories repositories.CategoryRepository, events EventPublisher) *ProductService {
	return &ProductService{
		repo:       repo,
		categories: categories,
		events:     events,
	}
}

func (s *ProductService) checkInput(ctx context.Context, input *ProductInput) error {
	trim(&input.Name, &input.Description, &input.Category, &input.Brand, &input.Image)
	if err := validateInput(input); err != nil {
		return err
	}
	if _, err := s.categories.GetByID(ctx, input.Category); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validationError("category not found")
		}
		return fmt.Errorf("failed to look up category: %w", err)
	}
	return nil
}

func applyInput(product *models.Product, input ProductInput) {
	product.Name = input.Name
	product.Description = input.Description
	product.Quantity = *input.Quantity
	product.Price = *input.Price
	product.CategoryID = input.Category
	product.Brand = input.Brand
	product.Image = input.Image
}

func productEvent(product *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"id":       product.ID,
		"name":     product.Name,
		"category": product.CategoryID,
		"price":    product.Price,
		"quantity": product.Quantity,
	}
}

// Create validates input and stores a new product without reviews.
func (s *ProductService) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	if err := s.checkInput(ctx, &input); err != nil {
		return nil, err
	}

	product := &models.Product{Reviews: []models.Review{}}
	applyInput(product, input)
	product.RecomputeRating()
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	publishEvent(s.events, EventProductCreated, productEvent(product))
	return product, nil
}

// Update overwrites the editable fields of an existing product. Reviews and
// the rating derived from them are kept.
func (s *ProductService) Update(ctx context.Context, id string, input ProductInput) (*models.Product, error) {
	if err := s.checkInput(ctx, &input); err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError(err, "product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	applyInput(product, input)
	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError(err, "product not found")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	publishEvent(s.events, EventProductUpdated, productEvent(product))
	return product, nil
}

// Remove deletes a product together with its reviews and returns it, or nil
// when there was nothing to delete.
func (s *ProductService) Remove(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err == nil {
		err = s.repo.Delete(ctx, id)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}

	publishEvent(s.events, EventProductDeleted, productEvent(product))
	return product, nil
}

// List returns one page of products whose name contains keyword. Pages are
// numbered from 1; smaller values select the first page.
func (s *ProductService) List(ctx context.Context, keyword string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	products, total, err := s.repo.Search(ctx, keyword, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	pages := int((total + PageSize - 1) / PageSize)
	return &ProductPage{
		Products: products,
		Page:     page,
		Pages:    pages,
		HasMore:  page < pages,
	}, nil
}

// ListFeatured returns the newest products with their categories resolved.
func (s *ProductService) ListFeatured(ctx context.Context) ([]FeaturedProduct, error) {
	products, err := s.repo.ListSorted(ctx, repositories.OrderNewest, featuredLimit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}

	featured := make([]FeaturedProduct, 0, len(products))
	for _, p := range products {
		featured = append(featured, FeaturedProduct{Product: p, Category: p.CategoryRef})
	}
	return featured, nil
}

// GetByID returns a product with its reviews.
func (s *ProductService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError(err, "product not found")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// AddReview records user's review of a product. A user reviews a product at
// most once.
func (s *ProductService) AddReview(ctx context.Context, productID string, user models.UserProfile, input ReviewInput) (*models.Product, error) {
	product, err := s.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if product.HasReviewFrom(user.ID) {
		return nil, conflictError(nil, "product already reviewed")
	}

	review := models.Review{
		UserID:  user.ID,
		Name:    user.Username,
		Rating:  *input.Rating,
		Comment: input.Comment,
	}
	product, err = s.repo.AppendReview(ctx, productID, review)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyReviewed):
			return nil, conflictError(err, "product already reviewed")
		case errors.Is(err, repositories.ErrNotFound):
			return nil, notFoundError(err, "product not found")
		case errors.Is(err, repositories.ErrConcurrentUpdate):
			return nil, conflictError(err, "product is busy, please retry")
		}
		return nil, fmt.Errorf("failed to add review: %w", err)
	}

	publishEvent(s.events, EventProductReviewed, map[string]interface{}{
		"id":         product.ID,
		"user":       user.ID,
		"rating":     review.Rating,
		"numReviews": product.NumReviews,
		"average":    product.Rating,
	})
	return product, nil
}

// TopRated returns the best rated products.
func (s *ProductService) TopRated(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListSorted(ctx, repositories.OrderTopRated, highlightLimit, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list top products: %w", err)
	}
	return products, nil
}

// Newest returns the most recently created products.
func (s *ProductService) Newest(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListSorted(ctx, repositories.OrderNewest, highlightLimit, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list new products: %w", err)
	}
	return products, nil
}
