package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sandwich = MenuItem{ID: 3, Name: "Club Sandwich", Price: 250, IsAvailable: true}
	coffee   = MenuItem{ID: 1, Name: "Cappuccino", Price: 120, IsAvailable: true, ImageURL: "/uploads/menu/1.jpg?t=1"}
	brownie  = MenuItem{ID: 4, Name: "Brownie", Price: 90}
)

func TestCartAdd(t *testing.T) {
	var cart Cart
	cart, err := cart.Add(sandwich)
	require.NoError(t, err)
	cart, err = cart.Add(coffee)
	require.NoError(t, err)
	cart, err = cart.Add(sandwich)
	require.NoError(t, err)

	require.Len(t, cart, 2)
	assert.Equal(t, 3, cart[0].ItemID)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, "/uploads/menu/1.jpg?t=1", cart[1].ImageURL)
	assert.Equal(t, 3, cart.ItemCount())
}

func TestCartAddUnavailable(t *testing.T) {
	cart := Cart{{ItemID: 1, Name: "Cappuccino", UnitPrice: 120, Quantity: 1}}
	out, err := cart.Add(brownie)
	assert.ErrorIs(t, err, ErrItemUnavailable)
	assert.Equal(t, cart, out)
}

func TestCartKeepsPriceSnapshot(t *testing.T) {
	cart, _ := Cart{}.Add(sandwich)
	repriced := sandwich
	repriced.Price = 300
	cart, _ = cart.Add(repriced)

	assert.Equal(t, 250.0, cart[0].UnitPrice)
	assert.Equal(t, 500.0, cart.Subtotal())
}

func TestCartIncrementDecrement(t *testing.T) {
	cart := Cart{{ItemID: 1, UnitPrice: 120, Quantity: 1}, {ItemID: 3, UnitPrice: 250, Quantity: 2}}

	inc := cart.Increment(1)
	assert.Equal(t, 2, inc.Quantity(1))
	assert.Equal(t, 1, cart.Quantity(1), "receiver must not change")

	assert.Equal(t, cart, cart.Increment(42))

	dec := cart.Decrement(1)
	require.Len(t, dec, 1)
	assert.Equal(t, 3, dec[0].ItemID)

	dec = dec.Decrement(3)
	assert.Equal(t, 1, dec.Quantity(3))
	assert.Empty(t, dec.Decrement(3))
}

func TestCartTotals(t *testing.T) {
	tests := []struct {
		name                 string
		cart                 Cart
		subtotal, tax, total float64
	}{
		{"empty", nil, 0, 0, 0},
		{"one sandwich", Cart{{ItemID: 3, UnitPrice: 250, Quantity: 1}}, 250, 13, 263},
		{"half rounds up", Cart{{ItemID: 1, UnitPrice: 120, Quantity: 1}, {ItemID: 2, UnitPrice: 150, Quantity: 1}}, 270, 14, 284},
		{"rounds down", Cart{{ItemID: 9, UnitPrice: 45, Quantity: 1}}, 45, 2, 47},
		{"fractional prices", Cart{{ItemID: 5, UnitPrice: 0.1, Quantity: 3}}, 0.3, 0, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := tt.cart.Totals()
			assert.Equal(t, tt.subtotal, totals.Subtotal)
			assert.Equal(t, tt.tax, totals.Tax)
			assert.Equal(t, tt.total, totals.Total)
		})
	}
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, 750.0, CartLine{UnitPrice: 250, Quantity: 3}.LineTotal())
}
