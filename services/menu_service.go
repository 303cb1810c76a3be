package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

type cachedMenu struct {
	menu   *models.Menu
	expiry time.Time
}

// MenuService fetches the per-table menu and keeps successful responses for
// a short TTL. Failures are never cached.
type MenuService struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time

	mu    sync.RWMutex
	cache map[int]cachedMenu
}

func NewMenuService(backend Backend, ttl time.Duration) *MenuService {
	return &MenuService{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[int]cachedMenu),
	}
}

func (ms *MenuService) Menu(ctx context.Context, table int) (*models.Menu, error) {
	if m, ok := ms.cached(table); ok {
		return m, nil
	}

	menu, err := ms.backend.GetMenu(ctx, table)
	if err != nil {
		utils.ErrorLogger.Printf("menu fetch for table %d failed: %v", table, err)
		return nil, err
	}

	if ms.ttl > 0 {
		ms.mu.Lock()
		ms.cache[table] = cachedMenu{menu: menu, expiry: ms.now().Add(ms.ttl)}
		ms.mu.Unlock()
	}
	return menu, nil
}

// Item returns the current menu entry for id, used to snapshot a cart line.
func (ms *MenuService) Item(ctx context.Context, table, id int) (models.MenuItem, error) {
	menu, err := ms.Menu(ctx, table)
	if err != nil {
		return models.MenuItem{}, err
	}
	item, ok := menu.FindItem(id)
	if !ok {
		return models.MenuItem{}, ErrUnknownItem
	}
	return item, nil
}

// Invalidate drops every cached menu, e.g. after an admin edit.
func (ms *MenuService) Invalidate() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cache = make(map[int]cachedMenu)
}

func (ms *MenuService) cached(table int) (*models.Menu, bool) {
	ms.mu.RLock()
	entry, ok := ms.cache[table]
	ms.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if ms.now().After(entry.expiry) {
		ms.mu.Lock()
		delete(ms.cache, table)
		ms.mu.Unlock()
		return nil, false
	}
	return entry.menu, true
}
