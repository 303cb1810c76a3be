package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

// ErrInvalidQR is returned when the menu is opened without a table.
var ErrInvalidQR = errors.New("Invalid QR")

type MenuController struct {
	Menus *services.MenuService
}

func NewMenuController(menus *services.MenuService) *MenuController {
	return &MenuController{Menus: menus}
}

type MenuItemView struct {
	models.MenuItem
	DisplayImageURL string `json:"displayImageUrl"`
	InCart          int    `json:"inCart"`
}

type CategoryView struct {
	ID    int            `json:"id"`
	Name  string         `json:"name"`
	Items []MenuItemView `json:"items"`
}

type MenuView struct {
	Table            int            `json:"table"`
	Categories       []CategoryView `json:"categories"`
	ActiveCategoryID int            `json:"activeCategoryId,omitempty"`
	Cart             CartSummary    `json:"cart"`
}

// CartSummary is the footer of the menu page.
type CartSummary struct {
	ItemCount int    `json:"itemCount"`
	Total     string `json:"total"`
}

func summarize(cart models.Cart) CartSummary {
	return CartSummary{
		ItemCount: cart.ItemCount(),
		Total:     utils.FormatCurrencyINR(cart.Subtotal()),
	}
}

// GetMenu -> GET /api/menu?table=<n>
func (mc *MenuController) GetMenu(c *gin.Context) {
	store := middlewares.StoreFrom(c)
	session, err := services.OpenTableSession(store, c.Query("table"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidQR)
		return
	}
	if _, err := session.GuestToken(); err != nil {
		utils.ErrorLogger.Printf("Error initialising guest token: %v", err)
	}

	menu, err := mc.Menus.Menu(c.Request.Context(), session.Table)
	if err != nil {
		if services.IsConnectivity(err) {
			utils.RespondError(c, http.StatusBadGateway, errors.New(services.ConnectivityMessage+"\n\n"+services.ConnectivityHint))
			return
		}
		respondServiceError(c, err, "Menu could not be loaded. Please try again.")
		return
	}

	cart := services.LoadCart(store).Lines()
	view := MenuView{
		Table:      session.Table,
		Categories: make([]CategoryView, 0, len(menu.Categories)),
		Cart:       summarize(cart),
	}
	if id, ok := menu.DefaultCategoryID(); ok {
		view.ActiveCategoryID = id
	}
	for _, cat := range menu.Categories {
		cv := CategoryView{ID: cat.ID, Name: cat.Name, Items: make([]MenuItemView, 0, len(cat.Items))}
		for _, item := range cat.Items {
			cv.Items = append(cv.Items, MenuItemView{
				MenuItem:        item,
				DisplayImageURL: item.DisplayImageURL(),
				InCart:          cart.Quantity(item.ID),
			})
		}
		view.Categories = append(view.Categories, cv)
	}

	utils.RespondJSON(c, http.StatusOK, "Menu", view)
}
