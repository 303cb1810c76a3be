package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type PaymentController struct {
	Reconciler *services.OrderReconciler
	Merchant   services.Merchant
}

func NewPaymentController(reconciler *services.OrderReconciler, merchant services.Merchant) *PaymentController {
	return &PaymentController{Reconciler: reconciler, Merchant: merchant}
}

type PaymentView struct {
	OrderID   string                 `json:"orderId"`
	Amount    string                 `json:"amount"`
	Payable   bool                   `json:"payable"`
	Links     []services.PaymentLink `json:"links"`
	Attempted bool                   `json:"attempted"`
	Message   string                 `json:"message,omitempty"`
}

// GetPaymentLinks -> GET /api/orders/:id/payment-links
func (pc *PaymentController) GetPaymentLinks(c *gin.Context) {
	orderID := c.Param("id")
	order, err := pc.Reconciler.Detail(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err, "Failed to load order")
		return
	}

	attempted := services.NewPaymentTracker(middlewares.SessionStoreFrom(c)).Attempted(order.ID)
	view := PaymentView{
		OrderID:   order.ID,
		Amount:    utils.FormatCurrencyINR(order.Total),
		Payable:   order.Payable(),
		Links:     services.PaymentLinks(pc.Merchant, order),
		Attempted: attempted,
	}
	if view.Links == nil {
		view.Links = []services.PaymentLink{}
	}
	if attempted {
		view.Message = services.PaymentNotedMessage
	}
	utils.RespondJSON(c, http.StatusOK, "Payment links", view)
}

// MarkAttempted -> POST /api/orders/:id/payment-attempt. Records the tap on
// a payment link in the session scope; nothing is sent to the backend.
func (pc *PaymentController) MarkAttempted(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		utils.RespondError(c, http.StatusBadRequest, services.ErrMissingOrderID)
		return
	}
	if err := services.NewPaymentTracker(middlewares.SessionStoreFrom(c)).MarkAttempted(orderID); err != nil {
		respondServiceError(c, err, "Could not record payment")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment Noted!", gin.H{
		"orderId":   orderID,
		"attempted": true,
		"message":   services.PaymentNotedMessage,
	})
}
