package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

// CartKey is the storage key of the cart. It is global, not per table, so a
// browser has a single active cart.
const CartKey = "cart"

// CartStore keeps the in-memory cart and its persisted copy identical. Each
// mutation is written through before it becomes visible; if the write fails
// the mutation is dropped.
type CartStore struct {
	store database.Store

	mu   sync.Mutex
	cart models.Cart
}

// LoadCart hydrates a CartStore from storage. A value that does not decode
// to a cart is deleted and the cart starts empty.
func LoadCart(store database.Store) *CartStore {
	cs := &CartStore{store: store}

	raw, ok, err := store.Get(CartKey)
	if err != nil {
		utils.ErrorLogger.Printf("Error loading cart from storage: %v", err)
		return cs
	}
	if !ok {
		return cs
	}

	var lines models.Cart
	if err := json.Unmarshal([]byte(raw), &lines); err != nil || !validLines(lines) {
		utils.ErrorLogger.Printf("Discarding corrupt cart in storage: %v", err)
		if err := store.Remove(CartKey); err != nil {
			utils.ErrorLogger.Printf("Error clearing corrupt cart: %v", err)
		}
		return cs
	}
	cs.cart = lines
	return cs
}

func validLines(lines models.Cart) bool {
	seen := make(map[int]bool, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 || seen[l.ItemID] {
			return false
		}
		seen[l.ItemID] = true
	}
	return true
}

// Lines returns a copy of the current cart.
func (cs *CartStore) Lines() models.Cart {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make(models.Cart, len(cs.cart))
	copy(out, cs.cart)
	return out
}

func (cs *CartStore) Totals() models.Totals {
	return cs.Lines().Totals()
}

func (cs *CartStore) Add(item models.MenuItem) (models.Cart, error) {
	return cs.apply(func(c models.Cart) (models.Cart, error) { return c.Add(item) })
}

func (cs *CartStore) Increment(id int) (models.Cart, error) {
	return cs.apply(func(c models.Cart) (models.Cart, error) { return c.Increment(id), nil })
}

func (cs *CartStore) Decrement(id int) (models.Cart, error) {
	return cs.apply(func(c models.Cart) (models.Cart, error) { return c.Decrement(id), nil })
}

// Clear empties the cart and deletes the stored key.
func (cs *CartStore) Clear() error {
	_, err := cs.apply(func(models.Cart) (models.Cart, error) { return nil, nil })
	return err
}

func (cs *CartStore) apply(mutate func(models.Cart) (models.Cart, error)) (models.Cart, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	next, err := mutate(cs.cart)
	if err == nil {
		err = cs.persist(next)
	}
	if errors.Is(err, database.ErrValueTooLarge) {
		// An oversized cart is discarded like a corrupt one.
		utils.InfoLogger.Printf("Cart over storage limit, resetting: %v", err)
		if rmErr := cs.store.Remove(CartKey); rmErr != nil {
			utils.ErrorLogger.Printf("Error clearing oversized cart: %v", rmErr)
		}
		next, err = models.Cart{}, nil
	}
	if err == nil {
		cs.cart = next
	}
	out := make(models.Cart, len(cs.cart))
	copy(out, cs.cart)
	return out, err
}

func (cs *CartStore) persist(c models.Cart) error {
	if len(c) == 0 {
		if err := cs.store.Remove(CartKey); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := cs.store.Set(CartKey, string(b)); err != nil {
		utils.ErrorLogger.Printf("Error saving cart to storage: %v", err)
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
