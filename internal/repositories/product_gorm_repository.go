package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/models"
)

const maxReviewAttempts = 3

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

func preloadReviews(db *gorm.DB) *gorm.DB {
	return db.Preload("Reviews", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at, id")
	})
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.Version == 0 {
		product.Version = 1
	}
	// reviews only enter through AppendReview
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error; err != nil {
		return translateGORMError(err, "failed to create product %q", product.Name)
	}
	return nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Scopes(preloadReviews).First(&product, "id = ?", id).Error; err != nil {
		return nil, translateGORMError(err, "failed to get product by ID %s", id)
	}
	return &product, nil
}

// Search returns one page of products matching keyword, newest first.
func (r *GORMProductRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]models.Product, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Scopes(nameContains(keyword)).Count(&total).Error; err != nil {
		return nil, 0, translateGORMError(err, "failed to count products")
	}

	products := []models.Product{}
	err := r.db.WithContext(ctx).
		Scopes(nameContains(keyword), preloadReviews).
		Order("created_at DESC, id").
		Offset(offset).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, translateGORMError(err, "failed to search products")
	}
	return products, total, nil
}

// ListSorted returns up to limit products in the requested order.
func (r *GORMProductRepository) ListSorted(ctx context.Context, order ProductOrder, limit int, withCategory bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Scopes(preloadReviews)
	switch order {
	case OrderTopRated:
		query = query.Order("rating DESC, num_reviews DESC, created_at DESC")
	default:
		query = query.Order("created_at DESC, id")
	}
	if withCategory {
		query = query.Preload("CategoryRef")
	}

	products := []models.Product{}
	if err := query.Limit(limit).Find(&products).Error; err != nil {
		return nil, translateGORMError(err, "failed to list products")
	}
	return products, nil
}

// Update writes the editable fields of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"quantity":    product.Quantity,
			"price":       product.Price,
			"category_id": product.CategoryID,
			"brand":       product.Brand,
			"image":       product.Image,
			"version":     gorm.Expr("version + 1"),
		})
	if err := checkAffected(ctx, r.db, res, &models.Product{}, product.ID); err != nil {
		return translateGORMError(err, "failed to update product %s", product.ID)
	}
	return nil
}

// Delete deletes a product and its reviews.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&models.Review{}).Error
	})
	if err != nil {
		return translateGORMError(err, "failed to delete product %s", id)
	}
	return nil
}

// AppendReview adds review to the product inside a transaction. The product
// row is locked where the dialect supports it, and the derived rating is
// written only if the product version is still the one that was read.
func (r *GORMProductRepository) AppendReview(ctx context.Context, productID string, review models.Review) (*models.Product, error) {
	for attempt := 1; attempt <= maxReviewAttempts; attempt++ {
		product, err := r.appendReview(ctx, productID, review)
		if !errors.Is(err, ErrConcurrentUpdate) {
			return product, err
		}
		log.WithFields(log.Fields{
			"product_id": productID,
			"attempt":    attempt,
		}).Debug("product changed while reviewing, retrying")
	}
	return nil, translateGORMError(ErrConcurrentUpdate, "failed to review product %s", productID)
}

func (r *GORMProductRepository) appendReview(ctx context.Context, productID string, review models.Review) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(preloadReviews).
			First(&product, "id = ?", productID).Error
		if err != nil {
			return err
		}
		if product.HasReviewFrom(review.UserID) {
			return ErrAlreadyReviewed
		}

		if review.ID == "" {
			review.ID = uuid.New().String()
		}
		review.ProductID = product.ID
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReviewed
			}
			return err
		}

		product.Reviews = append(product.Reviews, review)
		product.RecomputeRating()
		res := tx.Model(&models.Product{}).
			Where("id = ? AND version = ?", product.ID, product.Version).
			Updates(map[string]any{
				"num_reviews": product.NumReviews,
				"rating":      product.Rating,
				"version":     product.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		product.Version++
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyReviewed) || errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, translateGORMError(err, "failed to review product %s", productID)
	}
	return &product, nil
}
