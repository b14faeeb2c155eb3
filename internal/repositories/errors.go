package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write would break a uniqueness rule.
	ErrDuplicate = errors.New("record already exists")
	// ErrAlreadyReviewed is returned by AppendReview when the user already
	// reviewed the product.
	ErrAlreadyReviewed = errors.New("product already reviewed")
	// ErrConcurrentUpdate is returned when a record kept changing underneath
	// a read-modify-write and the write could not be applied.
	ErrConcurrentUpdate = errors.New("record modified concurrently")
)

// translateGORMError maps GORM errors onto the package sentinels, keeping the
// driver error in the chain for logging.
func translateGORMError(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
}
