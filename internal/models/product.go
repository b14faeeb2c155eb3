package models

import "time"

// Product represents a product in the store.
//
// NumReviews and Rating are derived from Reviews and only change together
// with it; see RecomputeRating.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Quantity    int       `json:"quantity" gorm:"not null;default:0"`
	Price       float64   `json:"price" gorm:"not null;default:0"`
	CategoryID  string    `json:"category" gorm:"type:varchar(36);index"`
	Brand       string    `json:"brand" gorm:"type:varchar(100)"`
	Image       string    `json:"image" gorm:"type:varchar(512)"`
	Reviews     []Review  `json:"reviews" gorm:"foreignKey:ProductID"`
	NumReviews  int       `json:"numReviews" gorm:"not null;default:0"`
	Rating      float64   `json:"rating" gorm:"not null;default:0;index"`
	Version     int       `json:"-" gorm:"not null;default:1"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`

	CategoryRef *Category `json:"-" gorm:"foreignKey:CategoryID"`
}

// Review is a user's rating of a product. It belongs to exactly one product.
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID string    `json:"-" gorm:"type:varchar(36);not null;uniqueIndex:idx_review_product_user"`
	UserID    string    `json:"user" gorm:"type:varchar(36);not null;uniqueIndex:idx_review_product_user"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Rating    float64   `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasReviewFrom reports whether userID already reviewed p.
func (p *Product) HasReviewFrom(userID string) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// RecomputeRating refreshes NumReviews and Rating from Reviews.
func (p *Product) RecomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	var sum float64
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = sum / float64(p.NumReviews)
}
