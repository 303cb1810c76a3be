package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Table is a row of GET /admin/tables.
type Table struct {
	TableNumber  int    `json:"tableNumber"`
	Status       string `json:"status,omitempty"`
	ActiveOrders int    `json:"activeOrders,omitempty"`
}

// ParseTableNumber validates the table query parameter taken from the QR code.
func ParseTableNumber(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing table number")
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid table number %q", raw)
	}
	return n, nil
}
