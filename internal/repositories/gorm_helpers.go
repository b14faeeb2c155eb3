package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// likeEscaper escapes LIKE wildcards so user input only matches literally.
// Queries using it must declare ESCAPE '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func nameContains(keyword string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if keyword == "" {
			return db
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
		return db.Where("LOWER(name) LIKE ? ESCAPE '!'", pattern)
	}
}

// checkAffected turns an update that touched no row into gorm.ErrRecordNotFound.
// MySQL reports zero affected rows for no-op updates, so the row is looked up
// before giving up.
func checkAffected(ctx context.Context, db *gorm.DB, res *gorm.DB, model any, id string) error {
	if res.Error != nil || res.RowsAffected > 0 {
		return res.Error
	}
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
