package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type CartController struct {
	Menus *services.MenuService
}

func NewCartController(menus *services.MenuService) *CartController {
	return &CartController{Menus: menus}
}

type CartLineView struct {
	models.CartLine
	DisplayImageURL string  `json:"displayImageUrl"`
	LineTotal       float64 `json:"lineTotal"`
}

type CartView struct {
	Table  int            `json:"table"`
	Lines  []CartLineView `json:"lines"`
	Totals models.Totals  `json:"totals"`
	// Formatted amounts as shown on the page
	Subtotal string `json:"subtotalText"`
	Tax      string `json:"taxText"`
	Total    string `json:"totalText"`
}

func cartView(table int, cart models.Cart) CartView {
	totals := cart.Totals()
	view := CartView{
		Table:    table,
		Lines:    make([]CartLineView, 0, len(cart)),
		Totals:   totals,
		Subtotal: utils.FormatCurrencyINR(totals.Subtotal),
		Tax:      utils.FormatCurrencyINR(totals.Tax),
		Total:    utils.FormatCurrencyINR(totals.Total),
	}
	for _, l := range cart {
		view.Lines = append(view.Lines, CartLineView{
			CartLine:        l,
			DisplayImageURL: models.DisplayImageURL(l.ImageURL, l.ItemID),
			LineTotal:       l.LineTotal(),
		})
	}
	return view
}

// tableParam reads the table of the cart page; without it the session is
// invalid.
func tableParam(c *gin.Context) (int, bool) {
	table, err := models.ParseTableNumber(c.Query("table"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.ErrInvalidSession)
		return 0, false
	}
	return table, true
}

func itemParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid item id"))
		return 0, false
	}
	return id, true
}

// GetCart -> GET /api/cart?table=<n>
func (cc *CartController) GetCart(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	cart := services.LoadCart(middlewares.StoreFrom(c))
	utils.RespondJSON(c, http.StatusOK, "Cart", cartView(table, cart.Lines()))
}

// AddItem -> POST /api/cart/items?table=<n> {"itemId": 3}
func (cc *CartController) AddItem(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	var body struct {
		ItemID int `json:"itemId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	item, err := cc.Menus.Item(c.Request.Context(), table, body.ItemID)
	if err != nil {
		respondServiceError(c, err, "Menu could not be loaded. Please try again.")
		return
	}

	lines, err := services.LoadCart(middlewares.StoreFrom(c)).Add(item)
	if err != nil {
		respondServiceError(c, err, "Could not update cart")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item added", cartView(table, lines))
}

// Increment -> POST /api/cart/items/:id/increment?table=<n>
func (cc *CartController) Increment(c *gin.Context) {
	cc.mutate(c, func(cs *services.CartStore, id int) (models.Cart, error) { return cs.Increment(id) })
}

// Decrement -> POST /api/cart/items/:id/decrement?table=<n>
func (cc *CartController) Decrement(c *gin.Context) {
	cc.mutate(c, func(cs *services.CartStore, id int) (models.Cart, error) { return cs.Decrement(id) })
}

func (cc *CartController) mutate(c *gin.Context, op func(*services.CartStore, int) (models.Cart, error)) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	id, ok := itemParam(c)
	if !ok {
		return
	}
	lines, err := op(services.LoadCart(middlewares.StoreFrom(c)), id)
	if err != nil {
		respondServiceError(c, err, "Could not update cart")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart updated", cartView(table, lines))
}

// ClearCart -> DELETE /api/cart?table=<n>
func (cc *CartController) ClearCart(c *gin.Context) {
	table, ok := tableParam(c)
	if !ok {
		return
	}
	if err := services.LoadCart(middlewares.StoreFrom(c)).Clear(); err != nil {
		respondServiceError(c, err, "Could not clear cart")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", cartView(table, nil))
}
