package utils

import (
	"sync"

	"gorm.io/gorm"
)

var (
	db   *gorm.DB
	once sync.Once
	mu   sync.RWMutex
)

// InitDB stores the storage connection shared by the CLI commands.
func InitDB(database *gorm.DB) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		db = database
	})
}

// GetDB returns the shared connection, nil before InitDB.
func GetDB() *gorm.DB {
	mu.RLock()
	defer mu.RUnlock()
	return db
}
