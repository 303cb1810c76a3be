package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/table-order/controllers"
)

func TestCartFlow(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	w, env := b.do(http.MethodPost, "/api/cart/items?table=3", map[string]int{"itemId": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cart controllers.CartView
	decode(t, env, &cart)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Club Sandwich", cart.Lines[0].Name)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
	assert.Equal(t, 250.0, cart.Totals.Subtotal)
	assert.Equal(t, 13.0, cart.Totals.Tax)
	assert.Equal(t, 263.0, cart.Totals.Total)
	assert.Equal(t, "₹250", cart.Subtotal)
	assert.Equal(t, "₹13", cart.Tax)
	assert.Equal(t, "₹263", cart.Total)

	// adding the same item again bumps the quantity
	_, env = b.do(http.MethodPost, "/api/cart/items?table=3", map[string]int{"itemId": 3})
	decode(t, env, &cart)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	_, env = b.do(http.MethodPost, "/api/cart/items/3/increment?table=3", nil)
	decode(t, env, &cart)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, 750.0, cart.Lines[0].LineTotal)

	for i := 0; i < 3; i++ {
		w, env = b.do(http.MethodPost, "/api/cart/items/3/decrement?table=3", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	decode(t, env, &cart)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0.0, cart.Totals.Total)
}

func TestCartIsSharedAcrossTables(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	b.do(http.MethodPost, "/api/cart/items?table=1", map[string]int{"itemId": 2})

	_, env := b.do(http.MethodGet, "/api/cart?table=7", nil)
	var cart controllers.CartView
	decode(t, env, &cart)
	assert.Equal(t, 7, cart.Table)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Cold Brew", cart.Lines[0].Name)
}

func TestCartIsPerVisitor(t *testing.T) {
	srv, _ := setupServer(t)
	alice := newBrowser(t, srv.Engine)
	bob := newBrowser(t, srv.Engine)

	alice.do(http.MethodPost, "/api/cart/items?table=1", map[string]int{"itemId": 1})

	_, env := bob.do(http.MethodGet, "/api/cart?table=1", nil)
	var cart controllers.CartView
	decode(t, env, &cart)
	assert.Empty(t, cart.Lines)
}

func TestAddItemErrors(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	tests := []struct {
		name    string
		path    string
		body    interface{}
		code    int
		message string
	}{
		{"unavailable item", "/api/cart/items?table=1", map[string]int{"itemId": 4}, http.StatusConflict, "item is not available"},
		{"unknown item", "/api/cart/items?table=1", map[string]int{"itemId": 99}, http.StatusNotFound, "menu item not found"},
		{"missing table", "/api/cart/items", map[string]int{"itemId": 1}, http.StatusBadRequest, "Invalid Session"},
		{"missing body", "/api/cart/items?table=1", nil, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := b.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, env.Status)
			if tt.message != "" {
				assert.Equal(t, tt.message, env.Message)
			}
		})
	}

	_, env := b.do(http.MethodGet, "/api/cart?table=1", nil)
	var cart controllers.CartView
	decode(t, env, &cart)
	assert.Empty(t, cart.Lines)
}

func TestIncrementUnknownLineIsNoop(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	w, env := b.do(http.MethodPost, "/api/cart/items/1/increment?table=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart controllers.CartView
	decode(t, env, &cart)
	assert.Empty(t, cart.Lines)

	w, _ = b.do(http.MethodPost, "/api/cart/items/x/increment?table=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearCart(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	b.do(http.MethodPost, "/api/cart/items?table=1", map[string]int{"itemId": 1})
	b.do(http.MethodPost, "/api/cart/items?table=1", map[string]int{"itemId": 2})

	w, _ := b.do(http.MethodDelete, "/api/cart?table=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, env := b.do(http.MethodGet, "/api/cart?table=1", nil)
	var cart controllers.CartView
	decode(t, env, &cart)
	assert.Empty(t, cart.Lines)
}
