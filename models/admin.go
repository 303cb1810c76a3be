package models

// CategoryInput is the body of POST/PATCH /admin/categories.
type CategoryInput struct {
	Name string `json:"name" binding:"required"`
}

// MenuItemInput is the body of POST/PATCH /admin/menu-items. Nil fields are
// left untouched on PATCH.
type MenuItemInput struct {
	CategoryID  *int     `json:"categoryId,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
}

// EndSessionResponse is returned by POST /admin/tables/:table/end-session.
type EndSessionResponse struct {
	Message      string `json:"message,omitempty"`
	ClosedOrders int    `json:"closedOrders,omitempty"`
}
