package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

type OrderController struct {
	Submitter    *services.OrderSubmitter
	Reconciler   *services.OrderReconciler
	PollInterval time.Duration
	Location     *time.Location
}

func NewOrderController(submitter *services.OrderSubmitter, reconciler *services.OrderReconciler, pollInterval time.Duration) *OrderController {
	return &OrderController{
		Submitter:    submitter,
		Reconciler:   reconciler,
		PollInterval: pollInterval,
		Location:     time.Local,
	}
}

// OrderDetailView adds the display fields of the status page to an order.
type OrderDetailView struct {
	*models.Order
	StatusLabel   string `json:"statusLabel"`
	CreatedAtText string `json:"createdAtText"`
	TotalText     string `json:"totalText"`
}

type OrderSummaryView struct {
	models.OrderSummary
	StatusLabel   string `json:"statusLabel"`
	CreatedAtText string `json:"createdAtText"`
}

type OrderStatusView struct {
	*services.OrderView
	Order       *OrderDetailView   `json:"order,omitempty"`
	TableOrders []OrderSummaryView `json:"tableOrders"`
}

func (oc *OrderController) detailView(o *models.Order) *OrderDetailView {
	if o == nil {
		return nil
	}
	return &OrderDetailView{
		Order:         o,
		StatusLabel:   o.Status.Label(),
		CreatedAtText: models.FormatOrderTime(o.CreatedAt.Time, oc.Location),
		TotalText:     utils.FormatCurrencyINR(o.Total),
	}
}

func (oc *OrderController) statusView(v *services.OrderView) OrderStatusView {
	out := OrderStatusView{
		OrderView:   v,
		Order:       oc.detailView(v.Order),
		TableOrders: make([]OrderSummaryView, 0, len(v.TableOrders)),
	}
	for _, s := range v.TableOrders {
		out.TableOrders = append(out.TableOrders, OrderSummaryView{
			OrderSummary:  s,
			StatusLabel:   s.Status.Label(),
			CreatedAtText: models.FormatOrderTime(s.CreatedAt.Time, oc.Location),
		})
	}
	return out
}

// PlaceOrder -> POST /api/orders?table=<n>
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	store := middlewares.StoreFrom(c)
	cart := services.LoadCart(store)

	result, err := oc.Submitter.Submit(c.Request.Context(), store, cart, c.Query("table"))
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			utils.ErrorLogger.Printf("Place order failed: %v", err)
		}
		utils.RespondError(c, code, errors.New(services.SubmitMessage(err)))
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order placed", gin.H{
		"orderId":         result.OrderID,
		"table":           result.Table,
		"redirect":        result.RedirectURL,
		"redirectAfterMs": result.RedirectAfter.Milliseconds(),
		"totals":          result.Totals,
	})
}

func (oc *OrderController) statusRequest(c *gin.Context) services.StatusRequest {
	return services.StatusRequest{
		Store:        middlewares.StoreFrom(c),
		SessionStore: middlewares.SessionStoreFrom(c),
		RawTable:     c.Query("table"),
		OrderID:      c.Query("orderId"),
	}
}

// GetStatus -> GET /api/order-status?table=<n>[&orderId=<id>]
func (oc *OrderController) GetStatus(c *gin.Context) {
	view, err := oc.Reconciler.Load(c.Request.Context(), oc.statusRequest(c))
	if err != nil {
		respondServiceError(c, err, "Failed to load order")
		return
	}
	c.Header("Content-Location", view.CanonicalURL)
	if view.Err != nil {
		utils.RespondErrorData(c, statusFor(view.Err), errors.New(view.Error), oc.statusView(view))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status", oc.statusView(view))
}

// StreamStatus -> GET /api/order-status/stream, server-sent events. The
// first event is sent right away, then one per poll until the client goes
// away.
func (oc *OrderController) StreamStatus(c *gin.Context) {
	req := oc.statusRequest(c)
	if _, err := models.ParseTableNumber(req.RawTable); err != nil {
		utils.RespondError(c, http.StatusBadRequest, services.ErrMissingTable)
		return
	}

	ctx := c.Request.Context()
	updates := make(chan OrderStatusView, 1)
	poller := services.NewPoller("order-status", oc.PollInterval, func(pctx context.Context) error {
		view, err := oc.Reconciler.Load(pctx, req)
		if err != nil {
			return err
		}
		// keep the resolved id stable across polls
		req.OrderID = view.OrderID
		select {
		case updates <- oc.statusView(view):
		case <-pctx.Done():
		}
		return nil
	})
	poller.Start(ctx)
	defer poller.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-updates:
			c.SSEvent("status", v)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// GetOrder -> GET /api/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Reconciler.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "Failed to load order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", oc.detailView(order))
}
