package services

import (
	"context"
	"errors"

	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

// IDSource says where the displayed order id came from.
type IDSource string

const (
	SourceNone    IDSource = "none"
	SourceURL     IDSource = "url"
	SourceStorage IDSource = "storage"
	SourceTable   IDSource = "table"
)

// ResolveOrderID picks the order to show: the explicit id, else the last
// id stored for the table, else the most recent order of the table list.
func ResolveOrderID(explicit, lastKnown string, tableOrders []models.OrderSummary) (string, IDSource) {
	if explicit != "" {
		return explicit, SourceURL
	}
	if lastKnown != "" {
		return lastKnown, SourceStorage
	}
	if len(tableOrders) > 0 && tableOrders[0].ID != "" {
		return tableOrders[0].ID, SourceTable
	}
	return "", SourceNone
}

// StatusRequest is one load of the order status page.
type StatusRequest struct {
	Store        database.Store
	SessionStore database.Store
	RawTable     string
	OrderID      string
}

// OrderView is everything the status page renders.
type OrderView struct {
	Table        int                   `json:"table"`
	OrderID      string                `json:"orderId,omitempty"`
	Source       IDSource              `json:"source"`
	CanonicalURL string                `json:"canonicalUrl"`
	Order        *models.Order         `json:"order,omitempty"`
	TableOrders  []models.OrderSummary `json:"tableOrders"`
	Attempted    bool                  `json:"paymentAttempted"`
	PaymentNote  string                `json:"paymentNote,omitempty"`
	PaymentLinks []PaymentLink         `json:"paymentLinks,omitempty"`
	Error        string                `json:"error,omitempty"`

	// Err is the failure behind Error.
	Err error `json:"-"`
}

// OrderReconciler resolves and loads the order shown on the status page.
type OrderReconciler struct {
	backend  Backend
	merchant Merchant
}

func NewOrderReconciler(backend Backend, merchant Merchant) *OrderReconciler {
	return &OrderReconciler{backend: backend, merchant: merchant}
}

// Load resolves the order id, fetches the table's order list and the order
// detail. A missing table is the only returned error; fetch failures are
// reported in OrderView.Error so the poller can keep going.
func (r *OrderReconciler) Load(ctx context.Context, req StatusRequest) (*OrderView, error) {
	session, err := OpenTableSession(req.Store, req.RawTable)
	if err != nil {
		return nil, ErrMissingTable
	}

	view := &OrderView{Table: session.Table, TableOrders: []models.OrderSummary{}}

	orderID, source := ResolveOrderID(req.OrderID, session.LastOrderID(), nil)

	list, err := r.backend.ListTableOrders(ctx, session.Table, session.ExistingGuestToken())
	if err != nil {
		utils.ErrorLogger.Printf("Failed to load orders for table %d: %v", session.Table, err)
	} else {
		view.TableOrders = list
		if orderID == "" {
			orderID, source = ResolveOrderID("", "", list)
			if orderID != "" {
				r.remember(session, orderID)
			}
		}
	}

	view.OrderID = orderID
	view.Source = source
	view.CanonicalURL = session.StatusURL(orderID)
	if orderID == "" {
		return view, nil
	}

	order, err := r.backend.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return view, err
		}
		view.Err = err
		view.Error = UserMessage(err, "Failed to load order")
		return view, nil
	}
	view.Order = order
	r.remember(session, orderID)

	if req.SessionStore != nil {
		view.Attempted = NewPaymentTracker(req.SessionStore).Attempted(orderID)
	}
	if view.Attempted {
		view.PaymentNote = PaymentNotedMessage
	}
	view.PaymentLinks = PaymentLinks(r.merchant, order)
	return view, nil
}

// Detail fetches one order for the table-list modal.
func (r *OrderReconciler) Detail(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}
	return r.backend.GetOrder(ctx, orderID)
}

func (r *OrderReconciler) remember(session *TableSession, orderID string) {
	if err := session.SetLastOrderID(orderID); err != nil {
		utils.ErrorLogger.Printf("Error saving last order id: %v", err)
	}
}
