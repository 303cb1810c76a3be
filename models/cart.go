package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TaxRate is applied to the cart subtotal and must match the backend.
var TaxRate = decimal.NewFromFloat(0.05)

var ErrItemUnavailable = errors.New("item is not available")

// CartLine keeps the JSON shape the cart has always been stored in.
type CartLine struct {
	ItemID    int     `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl,omitempty"`
}

func (l CartLine) LineTotal() float64 {
	return decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))).InexactFloat64()
}

// Cart is an ordered list of lines, at most one per item id.
// All methods return a new Cart and leave the receiver untouched.
type Cart []CartLine

func (c Cart) clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) index(id int) int {
	for i, l := range c {
		if l.ItemID == id {
			return i
		}
	}
	return -1
}

// Add increments the line for item or appends a new one with quantity 1.
// Name, price and image are captured now and never re-synced.
func (c Cart) Add(item MenuItem) (Cart, error) {
	if !item.IsAvailable {
		return c, ErrItemUnavailable
	}
	out := c.clone()
	if i := out.index(item.ID); i >= 0 {
		out[i].Quantity++
		return out, nil
	}
	return append(out, CartLine{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price.Float(),
		Quantity:  1,
		ImageURL:  item.ImageURL,
	}), nil
}

func (c Cart) Increment(id int) Cart {
	out := c.clone()
	if i := out.index(id); i >= 0 {
		out[i].Quantity++
	}
	return out
}

// Decrement removes the line once its quantity reaches zero.
func (c Cart) Decrement(id int) Cart {
	out := make(Cart, 0, len(c))
	for _, l := range c {
		if l.ItemID == id {
			l.Quantity--
		}
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	return out
}

func (c Cart) Quantity(id int) int {
	if i := c.index(id); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

func (c Cart) ItemCount() int {
	n := 0
	for _, l := range c {
		n += l.Quantity
	}
	return n
}

func (c Cart) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c {
		sum = sum.Add(decimal.NewFromFloat(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

func (c Cart) Subtotal() float64 {
	return c.subtotal().InexactFloat64()
}

func (c Cart) Tax() float64 {
	return ComputeTax(c.Subtotal())
}

func (c Cart) Total() float64 {
	return ComputeTotal(c.Subtotal())
}

// Totals is the derived pricing block shown under the cart.
type Totals struct {
	ItemCount int     `json:"itemCount"`
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
}

func (c Cart) Totals() Totals {
	sub := c.Subtotal()
	return Totals{
		ItemCount: c.ItemCount(),
		Subtotal:  sub,
		Tax:       ComputeTax(sub),
		Total:     ComputeTotal(sub),
	}
}

// ComputeTax returns round(subtotal * TaxRate), halves rounded up.
func ComputeTax(subtotal float64) float64 {
	return decimal.NewFromFloat(subtotal).Mul(TaxRate).Round(0).InexactFloat64()
}

func ComputeTotal(subtotal float64) float64 {
	sub := decimal.NewFromFloat(subtotal)
	return sub.Add(sub.Mul(TaxRate).Round(0)).InexactFloat64()
}
