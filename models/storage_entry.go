package models

import "time"

// StorageEntry is one key of a browser-style key/value namespace.
type StorageEntry struct {
	ID        uint      `gorm:"primaryKey"`
	Namespace string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_namespace_key"`
	Key       string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_namespace_key"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;index"`
}
