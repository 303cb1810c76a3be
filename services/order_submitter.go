package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

// RedirectDelay is how long the page waits before following the status
// redirect so the storage writes land first.
const RedirectDelay = 100 * time.Millisecond

type SubmitResult struct {
	OrderID       string        `json:"orderId"`
	Table         int           `json:"table"`
	RedirectURL   string        `json:"redirect"`
	RedirectAfter time.Duration `json:"-"`
	Totals        models.Totals `json:"totals"`
}

// OrderSubmitter turns the cart into an order. At most one submit runs per
// visitor; different visitors submit independently.
type OrderSubmitter struct {
	backend Backend

	mu       sync.Mutex
	inFlight map[interface{}]struct{}
}

func NewOrderSubmitter(backend Backend) *OrderSubmitter {
	return &OrderSubmitter{backend: backend, inFlight: make(map[interface{}]struct{})}
}

// visitorKey names the visitor owning store: its namespace when the store is
// a GormStore (a new one is built per request), the store itself otherwise.
func visitorKey(store database.Store) interface{} {
	if gs, ok := store.(*database.GormStore); ok {
		return gs.Namespace
	}
	return store
}

// InFlight reports whether a submit is currently running for the visitor
// owning store.
func (s *OrderSubmitter) InFlight(store database.Store) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[visitorKey(store)]
	return busy
}

func (s *OrderSubmitter) acquire(key interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[key]; busy {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *OrderSubmitter) release(key interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// Submit places the order for rawTable. An empty cart is a no-op returning
// ErrEmptyCart without touching the network; a missing table returns
// ErrInvalidSession.
func (s *OrderSubmitter) Submit(ctx context.Context, store database.Store, cart *CartStore, rawTable string) (*SubmitResult, error) {
	lines := cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	session, err := OpenTableSession(store, rawTable)
	if err != nil {
		return nil, ErrInvalidSession
	}

	key := visitorKey(store)
	if !s.acquire(key) {
		return nil, ErrSubmitInFlight
	}
	defer s.release(key)

	guestToken, err := session.GuestToken()
	if err != nil {
		return nil, err
	}

	req := models.CreateOrderRequest{
		Table:      strconv.Itoa(session.Table),
		GuestToken: guestToken,
		Items:      make([]models.OrderLineRequest, 0, len(lines)),
	}
	for _, l := range lines {
		req.Items = append(req.Items, models.OrderLineRequest{MenuItemID: l.ItemID, Quantity: l.Quantity})
	}

	resp, err := s.backend.CreateOrder(ctx, req)
	if err != nil {
		utils.ErrorLogger.Printf("Place order for table %d failed: %v", session.Table, err)
		return nil, err
	}
	if resp == nil || resp.OrderID == "" {
		return nil, ErrMissingOrderID
	}

	if err := session.SetLastOrderID(resp.OrderID); err != nil {
		utils.ErrorLogger.Printf("Error saving last order id: %v", err)
	}
	if err := cart.Clear(); err != nil {
		utils.ErrorLogger.Printf("Error clearing cart after order %s: %v", resp.OrderID, err)
	}

	utils.InfoLogger.WithField("table", session.Table).Printf("Order %s placed (%d lines)", resp.OrderID, len(lines))
	return &SubmitResult{
		OrderID:       resp.OrderID,
		Table:         session.Table,
		RedirectURL:   session.StatusURL(resp.OrderID),
		RedirectAfter: RedirectDelay,
		Totals:        lines.Totals(),
	}, nil
}

// SubmitMessage is the alert text for a failed submit.
func SubmitMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsConnectivity(err):
		return ConnectivityMessage + "\n\n" + ConnectivityHint
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	}
	return UserMessage(err, "Failed to place order. Please try again.")
}
