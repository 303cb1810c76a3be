package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type MenuCategoryController struct {
	Admin *services.AdminService
	Hub   *kds.Hub
}

func NewMenuCategoryController(admin *services.AdminService, hub *kds.Hub) *MenuCategoryController {
	return &MenuCategoryController{Admin: admin, Hub: hub}
}

func idParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid id"))
		return 0, false
	}
	return id, true
}

func notifyMenu(hub *kds.Hub) {
	if hub != nil {
		hub.BroadcastMenuUpdate()
	}
}

// GetAllCategories -> GET /api/admin/categories
func (mcc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	categories, err := mcc.Admin.Categories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to load categories")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All menu categories", categories)
}

// CreateCategory -> POST /api/admin/categories
func (mcc *MenuCategoryController) CreateCategory(c *gin.Context) {
	var body models.CategoryInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	categories, err := mcc.Admin.CreateCategory(c.Request.Context(), body.Name)
	if err != nil {
		respondServiceError(c, err, "Failed to create category")
		return
	}
	notifyMenu(mcc.Hub)
	utils.RespondJSON(c, http.StatusCreated, "Category created", categories)
}

// UpdateCategory -> PATCH /api/admin/categories/:id
func (mcc *MenuCategoryController) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var body models.CategoryInput
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	categories, err := mcc.Admin.RenameCategory(c.Request.Context(), id, body.Name)
	if err != nil {
		respondServiceError(c, err, "Failed to update category")
		return
	}
	notifyMenu(mcc.Hub)
	utils.RespondJSON(c, http.StatusOK, "Category updated", categories)
}

// DeleteCategory -> DELETE /api/admin/categories/:id?confirm=true
func (mcc *MenuCategoryController) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	categories, err := mcc.Admin.DeleteCategory(c.Request.Context(), id, confirmed(c))
	if err != nil {
		respondServiceError(c, err, "Failed to delete category")
		return
	}
	notifyMenu(mcc.Hub)
	utils.RespondJSON(c, http.StatusOK, "Category deleted", categories)
}
