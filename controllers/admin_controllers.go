package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type AdminController struct {
	Gate     *services.AdminGate
	Admin    *services.AdminService
	Feed     *kds.OrderFeed
	Location *time.Location
}

func NewAdminController(gate *services.AdminGate, admin *services.AdminService, feed *kds.OrderFeed) *AdminController {
	return &AdminController{Gate: gate, Admin: admin, Feed: feed, Location: time.Local}
}

// AdminOrderView is one row of the Orders tab.
type AdminOrderView struct {
	models.OrderSummary
	StatusLabel   string             `json:"statusLabel"`
	CreatedAtText string             `json:"createdAtText"`
	Progress      int                `json:"progress"`
	NextStatus    models.OrderStatus `json:"nextStatus,omitempty"`
	Cancellable   bool               `json:"cancellable"`
}

func (ac *AdminController) ordersView(orders []models.OrderSummary) []AdminOrderView {
	out := make([]AdminOrderView, 0, len(orders))
	for _, o := range orders {
		v := AdminOrderView{
			OrderSummary:  o,
			StatusLabel:   o.Status.AdminLabel(),
			CreatedAtText: models.FormatOrderTime(o.CreatedAt.Time, ac.Location),
			Progress:      o.Status.Progress(),
			Cancellable:   o.Status.Cancellable(),
		}
		if next, ok := o.Status.Next(); ok {
			v.NextStatus = next
		}
		out = append(out, v)
	}
	return out
}

// Login -> POST /api/admin/login {"pin": "2512"}
func (ac *AdminController) Login(c *gin.Context) {
	var body struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.ErrInvalidPIN)
		return
	}
	if err := ac.Gate.Login(middlewares.StoreFrom(c), body.PIN); err != nil {
		respondServiceError(c, err, "Login failed")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Unlocked", gin.H{"unlocked": true})
}

// Logout -> POST /api/admin/logout
func (ac *AdminController) Logout(c *gin.Context) {
	if err := ac.Gate.Logout(middlewares.StoreFrom(c)); err != nil {
		respondServiceError(c, err, "Logout failed")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Locked", gin.H{"unlocked": false})
}

// Session -> GET /api/admin/session
func (ac *AdminController) Session(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Admin session", gin.H{
		"unlocked": ac.Gate.IsUnlocked(middlewares.StoreFrom(c)),
	})
}

func adminTable(c *gin.Context, raw string) (int, bool) {
	table, err := models.ParseTableNumber(raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return 0, false
	}
	return table, true
}

// GetOrders -> GET /api/admin/orders?table=<n>
func (ac *AdminController) GetOrders(c *gin.Context) {
	raw := c.DefaultQuery("table", "1")
	table, ok := adminTable(c, raw)
	if !ok {
		return
	}
	orders, err := ac.Admin.Orders(c.Request.Context(), table)
	if err != nil {
		respondServiceError(c, err, "Failed to load orders")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders", gin.H{
		"table":  table,
		"orders": ac.ordersView(orders),
	})
}

// GetTables -> GET /api/admin/tables
func (ac *AdminController) GetTables(c *gin.Context) {
	tables, err := ac.Admin.Tables(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "Failed to load tables")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables", tables)
}

// UpdateOrderStatus -> PATCH /api/admin/orders/:id/status?confirm=true {"status": "ready"}
func (ac *AdminController) UpdateOrderStatus(c *gin.Context) {
	var body models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	status, err := models.ParseOrderStatus(string(body.Status))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	orders, err := ac.Admin.TransitionOrder(c.Request.Context(), c.Param("id"), status, confirmed(c))
	if err != nil {
		respondServiceError(c, err, "Failed to update order status")
		return
	}
	ac.respondOrders(c, "Order status updated", orders)
}

// AdvanceOrder -> POST /api/admin/orders/:id/advance
func (ac *AdminController) AdvanceOrder(c *gin.Context) {
	orders, err := ac.Admin.AdvanceOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to update order status")
		return
	}
	ac.respondOrders(c, "Order status updated", orders)
}

// CancelOrder -> POST /api/admin/orders/:id/cancel?confirm=true
func (ac *AdminController) CancelOrder(c *gin.Context) {
	orders, err := ac.Admin.CancelOrder(c.Request.Context(), c.Param("id"), confirmed(c))
	if err != nil {
		if errors.Is(err, services.ErrConfirmationRequired) {
			utils.RespondError(c, http.StatusPreconditionRequired, errors.New("Are you sure you want to cancel this order?"))
			return
		}
		respondServiceError(c, err, "Failed to update order status")
		return
	}
	ac.respondOrders(c, "Order cancelled", orders)
}

// EndSession -> POST /api/admin/tables/:table/end-session?confirm=true
func (ac *AdminController) EndSession(c *gin.Context) {
	table, ok := adminTable(c, c.Param("table"))
	if !ok {
		return
	}
	resp, err := ac.Admin.EndSession(c.Request.Context(), table, confirmed(c))
	if err != nil {
		respondServiceError(c, err, "Failed to end session")
		return
	}
	ac.pushTable(c, table)

	msg := resp.Message
	if msg == "" {
		msg = "Session ended for table " + strconv.Itoa(table)
	}
	utils.RespondJSON(c, http.StatusOK, msg, resp)
}

func (ac *AdminController) respondOrders(c *gin.Context, message string, orders []models.OrderSummary) {
	if ac.Feed != nil {
		if err := ac.Feed.RefreshAll(c.Request.Context()); err != nil {
			utils.ErrorLogger.Printf("Error pushing orders to dashboards: %v", err)
		}
	}
	utils.RespondJSON(c, http.StatusOK, message, ac.ordersView(orders))
}

func (ac *AdminController) pushTable(c *gin.Context, table int) {
	if ac.Feed == nil {
		return
	}
	if err := ac.Feed.RefreshTable(c.Request.Context(), table); err != nil {
		utils.ErrorLogger.Printf("Error pushing table %d to dashboards: %v", table, err)
	}
}
