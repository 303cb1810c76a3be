package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
)

func filledCart(t *testing.T, store database.Store, items ...models.MenuItem) *CartStore {
	t.Helper()
	cs := LoadCart(store)
	for _, it := range items {
		_, err := cs.Add(it)
		require.NoError(t, err)
	}
	return cs
}

func TestSubmitEmptyCartMakesNoRequest(t *testing.T) {
	backend := &stubBackend{createOrder: func(context.Context, models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
		t.Fatal("backend must not be called")
		return nil, nil
	}}
	store := database.NewMemoryStore()

	_, err := NewOrderSubmitter(backend).Submit(context.Background(), store, LoadCart(store), "4")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "Your cart is empty.", SubmitMessage(err))
}

func TestSubmitWithoutTable(t *testing.T) {
	store := database.NewMemoryStore()
	cart := filledCart(t, store, coffee)

	_, err := NewOrderSubmitter(&stubBackend{}).Submit(context.Background(), store, cart, "")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Len(t, cart.Lines(), 1)
}

func TestSubmitPlacesOrder(t *testing.T) {
	var sent models.CreateOrderRequest
	backend := &stubBackend{createOrder: func(_ context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
		sent = req
		return &models.CreateOrderResponse{OrderID: "ord-42"}, nil
	}}
	store := database.NewMemoryStore()
	cart := filledCart(t, store, sandwich, coffee, coffee)

	res, err := NewOrderSubmitter(backend).Submit(context.Background(), store, cart, "4")
	require.NoError(t, err)

	assert.Equal(t, "4", sent.Table)
	assert.Regexp(t, `^guest_\d+_[0-9a-z]{9}$`, sent.GuestToken)
	assert.Equal(t, []models.OrderLineRequest{
		{MenuItemID: 3, Quantity: 1},
		{MenuItemID: 1, Quantity: 2},
	}, sent.Items)

	assert.Equal(t, "ord-42", res.OrderID)
	assert.Equal(t, "/order-status?orderId=ord-42&table=4", res.RedirectURL)
	assert.Equal(t, RedirectDelay, res.RedirectAfter)
	assert.Equal(t, 515.0, res.Totals.Total)

	assert.Empty(t, cart.Lines())
	_, ok, _ := store.Get(CartKey)
	assert.False(t, ok)
	assert.Equal(t, "ord-42", NewTableSession(store, 4).LastOrderID())
	assert.Equal(t, sent.GuestToken, NewTableSession(store, 4).ExistingGuestToken())
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"server message", &APIError{StatusCode: 400, Message: "Brownie is not available"}, "Brownie is not available"},
		{"unreachable", &ConnectivityError{Err: errors.New("connection refused")}, ConnectivityMessage + "\n\n" + ConnectivityHint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{createOrder: func(context.Context, models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
				return nil, tt.err
			}}
			store := database.NewMemoryStore()
			cart := filledCart(t, store, coffee)

			_, err := NewOrderSubmitter(backend).Submit(context.Background(), store, cart, "2")
			require.Error(t, err)
			assert.Equal(t, tt.message, SubmitMessage(err))
			assert.Len(t, cart.Lines(), 1)
			assert.Empty(t, NewTableSession(store, 2).LastOrderID())
		})
	}
}

func TestSubmitRejectsConcurrentSubmit(t *testing.T) {
	release := make(chan struct{})
	backend := &stubBackend{createOrder: func(context.Context, models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
		<-release
		return &models.CreateOrderResponse{OrderID: "ord-1"}, nil
	}}
	store := database.NewMemoryStore()
	cart := filledCart(t, store, coffee)
	submitter := NewOrderSubmitter(backend)

	done := make(chan error, 1)
	go func() {
		_, err := submitter.Submit(context.Background(), store, cart, "1")
		done <- err
	}()
	require.Eventually(t, func() bool { return submitter.InFlight(store) }, time.Second, 5*time.Millisecond)

	_, err := submitter.Submit(context.Background(), store, cart, "1")
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, submitter.InFlight(store))
}

func TestSubmitIsGatedPerVisitor(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	backend := &stubBackend{createOrder: func(_ context.Context, req models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
		if calls.Add(1) == 1 {
			<-release
		}
		return &models.CreateOrderResponse{OrderID: "ord-" + req.Table}, nil
	}}
	submitter := NewOrderSubmitter(backend)

	first := database.NewMemoryStore()
	firstCart := filledCart(t, first, coffee)
	done := make(chan error, 1)
	go func() {
		_, err := submitter.Submit(context.Background(), first, firstCart, "1")
		done <- err
	}()
	require.Eventually(t, func() bool { return submitter.InFlight(first) }, time.Second, 5*time.Millisecond)

	second := database.NewMemoryStore()
	assert.False(t, submitter.InFlight(second))
	res, err := submitter.Submit(context.Background(), second, filledCart(t, second, sandwich), "7")
	require.NoError(t, err)
	assert.Equal(t, "ord-7", res.OrderID)
	assert.True(t, submitter.InFlight(first))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, submitter.InFlight(first))
}

func TestSubmitGateFollowsStorageNamespace(t *testing.T) {
	db := setupTestDB(t)
	release := make(chan struct{})
	backend := &stubBackend{createOrder: func(context.Context, models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
		<-release
		return &models.CreateOrderResponse{OrderID: "ord-1"}, nil
	}}
	submitter := NewOrderSubmitter(backend)

	// every request builds a new GormStore over the same namespace
	store := database.NewGormStore(db, "browser:a")
	cart := filledCart(t, store, coffee)
	done := make(chan error, 1)
	go func() {
		_, err := submitter.Submit(context.Background(), store, cart, "1")
		done <- err
	}()
	again := database.NewGormStore(db, "browser:a")
	require.Eventually(t, func() bool { return submitter.InFlight(again) }, time.Second, 5*time.Millisecond)

	_, err := submitter.Submit(context.Background(), again, cart, "1")
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.False(t, submitter.InFlight(database.NewGormStore(db, "browser:b")))

	close(release)
	require.NoError(t, <-done)
}

func TestSubmitAgainstFakeBackend(t *testing.T) {
	client, fb := newFakeBackend(t)
	store := database.NewMemoryStore()
	cart := filledCart(t, store, sandwich)

	res, err := NewOrderSubmitter(client).Submit(context.Background(), store, cart, "6")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.Requests("POST /orders"))

	order, err := client.GetOrder(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 6, order.TableNumber)
	assert.Equal(t, 263.0, order.Total)
}
