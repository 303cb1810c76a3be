package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/table-order/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxValueBytes mirrors the per-origin quota browsers give localStorage.
const DefaultMaxValueBytes = 5 << 20

var ErrValueTooLarge = errors.New("storage value exceeds quota")

// Store is the key/value surface that replaces browser local and session
// storage. Get reports whether the key exists.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// GetJSON decodes the value under key into v. A missing key reports false
// and no error; an undecodable value is returned as an error so callers can
// decide whether to discard it.
func GetJSON(s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(s Store, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(key, string(b))
}

// GormStore keeps one namespace of keys in the storage_entries table.
type GormStore struct {
	DB            *gorm.DB
	Namespace     string
	MaxValueBytes int
}

func NewGormStore(db *gorm.DB, namespace string) *GormStore {
	return &GormStore{DB: db, Namespace: namespace, MaxValueBytes: DefaultMaxValueBytes}
}

// WithNamespace returns a store over the same table scoped to ns.
func (s *GormStore) WithNamespace(ns string) *GormStore {
	return &GormStore{DB: s.DB, Namespace: ns, MaxValueBytes: s.MaxValueBytes}
}

func (s *GormStore) Get(key string) (string, bool, error) {
	var entry models.StorageEntry
	err := s.DB.Where("namespace = ? AND `key` = ?", s.Namespace, key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *GormStore) Set(key, value string) error {
	if s.MaxValueBytes > 0 && len(value) > s.MaxValueBytes {
		return fmt.Errorf("%s: %w", key, ErrValueTooLarge)
	}
	now := time.Now()
	entry := models.StorageEntry{
		Namespace: s.Namespace,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Remove(key string) error {
	return s.DB.Where("namespace = ? AND `key` = ?", s.Namespace, key).Delete(&models.StorageEntry{}).Error
}

// PurgeStale deletes entries of namespaces matching pattern (SQL LIKE) that
// were not written since cutoff.
func PurgeStale(db *gorm.DB, pattern string, cutoff time.Time) (int64, error) {
	res := db.Where("namespace LIKE ? AND updated_at < ?", pattern, cutoff).Delete(&models.StorageEntry{})
	return res.RowsAffected, res.Error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu            sync.RWMutex
	data          map[string]string
	MaxValueBytes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	if m.MaxValueBytes > 0 && len(value) > m.MaxValueBytes {
		return fmt.Errorf("%s: %w", key, ErrValueTooLarge)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
