package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

var customerLabels = map[OrderStatus]string{
	StatusPending:   "Order Received",
	StatusPaid:      "Payment Confirmed",
	StatusPreparing: "Preparing",
	StatusReady:     "Ready for Pickup",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

var adminLabels = map[OrderStatus]string{
	StatusPending:   "Pending",
	StatusPaid:      "Paid",
	StatusPreparing: "Preparing",
	StatusReady:     "Ready",
	StatusCompleted: "Completed",
	StatusCancelled: "Cancelled",
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := customerLabels[st]; !ok {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return st, nil
}

func (s OrderStatus) Valid() bool {
	_, ok := customerLabels[s]
	return ok
}

// Label is the text shown to customers.
func (s OrderStatus) Label() string {
	if l, ok := customerLabels[s]; ok {
		return l
	}
	return string(s)
}

// AdminLabel is the text shown on the staff dashboard.
func (s OrderStatus) AdminLabel() string {
	if l, ok := adminLabels[s]; ok {
		return l
	}
	return string(s)
}

// Next returns the single forward step staff may take from s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case StatusPending, StatusPaid:
		return StatusPreparing, true
	case StatusPreparing:
		return StatusReady, true
	case StatusReady:
		return StatusCompleted, true
	}
	return "", false
}

func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusPreparing
}

// CanTransition reports whether staff may move an order from s to to.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if to == StatusCancelled {
		return s.Cancellable()
	}
	next, ok := s.Next()
	return ok && next == to
}

// Progress is the fill of the dashboard progress bar, in thirds.
func (s OrderStatus) Progress() int {
	switch s {
	case StatusPreparing:
		return 2
	case StatusReady, StatusCompleted:
		return 3
	}
	return 1
}

// Timestamp parses backend times; strings without a zone suffix are UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s", string(data))
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatOrderTime renders t in loc the way the status pages show it.
func FormatOrderTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("1/2/2006, 3:04:05 PM")
}

type Order struct {
	ID          string      `json:"id"`
	TableNumber int         `json:"tableNumber"`
	Status      OrderStatus `json:"status"`
	CreatedAt   Timestamp   `json:"createdAt"`
	Subtotal    float64     `json:"subtotal"`
	Tax         float64     `json:"tax"`
	Total       float64     `json:"total"`
	Items       []OrderItem `json:"items"`
}

func (o *Order) Validate() error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("invalid order data: missing id")
	}
	return nil
}

// Payable reports whether payment links should still be offered.
func (o *Order) Payable() bool {
	return o.Status != StatusCompleted
}

// OrderSummary is one element of GET /orders/table/:table.
type OrderSummary struct {
	ID        string      `json:"id"`
	Status    OrderStatus `json:"status"`
	CreatedAt Timestamp   `json:"createdAt"`
	Subtotal  float64     `json:"subtotal"`
	Tax       float64     `json:"tax"`
	Total     float64     `json:"total"`
	ItemCount int         `json:"itemCount"`
}
