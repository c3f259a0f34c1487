package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// OrderByPosition keeps transcript rows in conversation order
func OrderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
