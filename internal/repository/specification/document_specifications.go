package specification

import "gorm.io/gorm"

// ActiveOnly filters documents to those currently activated for search.
type ActiveOnly struct{}

func (s ActiveOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// ByProviderFileID filters by the provider-assigned file id.
type ByProviderFileID struct {
	FileID string
}

func (s ByProviderFileID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("provider_file_id = ?", s.FileID)
}
