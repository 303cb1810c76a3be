package models

type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
	LineTotal float64 `json:"total"`
}

// OrderLineRequest is one entry of the POST /orders items array.
type OrderLineRequest struct {
	MenuItemID int `json:"menuItemId"`
	Quantity   int `json:"quantity"`
}

type CreateOrderRequest struct {
	Table      string             `json:"table"`
	GuestToken string             `json:"guestToken"`
	Items      []OrderLineRequest `json:"items"`
}

type CreateOrderResponse struct {
	OrderID string `json:"orderId"`
	Message string `json:"message,omitempty"`
}

type StatusUpdateRequest struct {
	Status OrderStatus `json:"status"`
}
