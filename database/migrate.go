package database

import (
	"github.com/yeremiapane/table-order/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the storage tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.StorageEntry{})
}
