package database

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/table-order/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestGormStoreRoundTrip(t *testing.T) {
	store := NewGormStore(setupTestDB(t), "browser:abc")

	_, ok, err := store.Get("cart")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("cart", `[{"id":1}]`))
	require.NoError(t, store.Set("cart", `[{"id":2}]`))
	v, ok, err := store.Get("cart")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":2}]`, v)

	require.NoError(t, store.Set("guestId_table_1", "guest_1_abc"))
	var count int64
	store.DB.Model(&models.StorageEntry{}).Where("namespace = ?", store.Namespace).Count(&count)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.Remove("cart"))
	_, ok, _ = store.Get("cart")
	assert.False(t, ok)
	assert.NoError(t, store.Remove("cart"), "removing a missing key is fine")
}

func TestGormStoreNamespaces(t *testing.T) {
	db := setupTestDB(t)
	a := NewGormStore(db, "browser:a")
	b := a.WithNamespace("browser:b")

	require.NoError(t, a.Set("adminAuth", "true"))
	_, ok, err := b.Get("adminAuth")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGormStoreQuota(t *testing.T) {
	store := NewGormStore(setupTestDB(t), "browser:q")
	store.MaxValueBytes = 16

	err := store.Set("cart", strings.Repeat("x", 17))
	assert.ErrorIs(t, err, ErrValueTooLarge)
	_, ok, _ := store.Get("cart")
	assert.False(t, ok)

	assert.NoError(t, store.Set("cart", strings.Repeat("x", 16)))
}

func TestJSONHelpers(t *testing.T) {
	store := NewMemoryStore()

	var ids []string
	found, err := GetJSON(store, "attempted_orders", &ids)
	assert.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(store, "attempted_orders", []string{"a", "b"}))
	found, err = GetJSON(store, "attempted_orders", &ids)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.Set("attempted_orders", "{not json"))
	found, err = GetJSON(store, "attempted_orders", &ids)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestPurgeStale(t *testing.T) {
	db := setupTestDB(t)
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Create(&[]models.StorageEntry{
		{Namespace: "session:1", Key: "attempted_orders", Value: "[]", CreatedAt: old, UpdatedAt: old},
		{Namespace: "browser:1", Key: "cart", Value: "[]", CreatedAt: old, UpdatedAt: old},
	}).Error)
	require.NoError(t, NewGormStore(db, "session:2").Set("attempted_orders", "[]"))

	n, err := PurgeStale(db, "session:%", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	db.Model(&models.StorageEntry{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStoreQuota(t *testing.T) {
	store := NewMemoryStore()
	store.MaxValueBytes = 4
	assert.ErrorIs(t, store.Set("k", "12345"), ErrValueTooLarge)
	assert.NoError(t, store.Set("k", "1234"))
	v, ok, _ := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "1234", v)
}
