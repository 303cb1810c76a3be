package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

// maxImageBytes caps menu image uploads.
const maxImageBytes = 10 << 20

type MenuItemController struct {
	Admin *services.AdminService
	Hub   *kds.Hub
}

func NewMenuItemController(admin *services.AdminService, hub *kds.Hub) *MenuItemController {
	return &MenuItemController{Admin: admin, Hub: hub}
}

type adminItemView struct {
	models.MenuItem
	DisplayImageURL string `json:"displayImageUrl"`
	PriceText       string `json:"priceText"`
}

func itemsView(items []models.MenuItem) []adminItemView {
	out := make([]adminItemView, 0, len(items))
	for _, it := range items {
		out = append(out, adminItemView{
			MenuItem:        it,
			DisplayImageURL: it.DisplayImageURL(),
			PriceText:       utils.FormatCurrencyINR(it.Price.Float()),
		})
	}
	return out
}

// GetAllItems -> GET /api/admin/menu-items
func (mic *MenuItemController) GetAllItems(c *gin.Context) {
	items, err := mic.Admin.Items(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to load menu items")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All menu items", itemsView(items))
}

// CreateItem -> POST /api/admin/menu-items
func (mic *MenuItemController) CreateItem(c *gin.Context) {
	var body models.MenuItemInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	items, err := mic.Admin.CreateItem(c.Request.Context(), body)
	if err != nil {
		respondServiceError(c, err, "Failed to create menu item")
		return
	}
	notifyMenu(mic.Hub)
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", itemsView(items))
}

// UpdateItem -> PATCH /api/admin/menu-items/:id
func (mic *MenuItemController) UpdateItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body models.MenuItemInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	items, err := mic.Admin.UpdateItem(c.Request.Context(), id, body)
	if err != nil {
		respondServiceError(c, err, "Failed to update menu item")
		return
	}
	notifyMenu(mic.Hub)
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", itemsView(items))
}

// SetAvailability -> PATCH /api/admin/menu-items/:id/availability {"isAvailable": false}
func (mic *MenuItemController) SetAvailability(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body struct {
		IsAvailable *bool `json:"isAvailable" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	items, err := mic.Admin.SetAvailability(c.Request.Context(), id, *body.IsAvailable)
	if err != nil {
		respondServiceError(c, err, "Failed to update menu item")
		return
	}
	notifyMenu(mic.Hub)
	utils.RespondJSON(c, http.StatusOK, "Availability updated", itemsView(items))
}

// DeleteItem -> DELETE /api/admin/menu-items/:id?confirm=true
func (mic *MenuItemController) DeleteItem(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	items, err := mic.Admin.DeleteItem(c.Request.Context(), id, confirmed(c))
	if err != nil {
		respondServiceError(c, err, "Failed to delete menu item")
		return
	}
	notifyMenu(mic.Hub)
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", itemsView(items))
}

// UploadImage -> POST /api/admin/menu-items/:id/image, multipart field "image"
func (mic *MenuItemController) UploadImage(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)
	fh, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	items, err := mic.Admin.UploadImage(c.Request.Context(), id, fh.Filename, f)
	if err != nil {
		respondServiceError(c, err, "Failed to upload image")
		return
	}
	notifyMenu(mic.Hub)
	utils.RespondJSON(c, http.StatusOK, "Image uploaded", itemsView(items))
}
