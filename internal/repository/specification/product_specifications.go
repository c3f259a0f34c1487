package specification

import "gorm.io/gorm"

// BySource filters product embeddings by the catalog file they came from
type BySource struct {
	Source string
}

func (s BySource) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source = ?", s.Source)
}

// ByCategory matches the category case-insensitively
type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category ILIKE ?", s.Category)
}
