package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/table-order/controllers"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
)

func TestPaymentLinks(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)
	orderID := placeOrder(t, b, "4", 3)

	w, env := b.do(http.MethodGet, "/api/orders/"+orderID+"/payment-links", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))

	var view controllers.PaymentView
	decode(t, env, &view)
	assert.Equal(t, orderID, view.OrderID)
	assert.Equal(t, "₹263", view.Amount)
	assert.True(t, view.Payable)
	assert.False(t, view.Attempted)

	require.Len(t, view.Links, 4)
	want := []services.UPIApp{services.UPIGooglePay, services.UPIPhonePe, services.UPIPaytm, services.UPIDefault}
	for i, link := range view.Links {
		assert.Equal(t, want[i], link.App)
		assert.Contains(t, link.URL, "pa=cafe%40upi&pn=Test+Cafe&am=263.00&tn=Club+Sandwich%281%29+%7C+Order+%23"+orderID[len(orderID)-8:]+"&cu=INR")
	}
	assert.Contains(t, view.Links[3].URL, "upi://pay?")
}

func TestPaymentAttemptIsSessionScoped(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)
	orderID := placeOrder(t, b, "4", 1)

	w, env := b.do(http.MethodPost, "/api/orders/"+orderID+"/payment-attempt", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Payment Noted!", env.Message)

	_, env = b.do(http.MethodGet, "/api/orders/"+orderID+"/payment-links", nil)
	var view controllers.PaymentView
	decode(t, env, &view)
	assert.True(t, view.Attempted)
	assert.Equal(t, services.PaymentNotedMessage, view.Message)

	_, env = b.do(http.MethodGet, "/api/order-status?table=4", nil)
	var status statusData
	decode(t, env, &status)
	assert.True(t, status.PaymentAttempted)
	assert.Equal(t, services.PaymentNotedMessage, status.PaymentNote)

	// a new browser session keeps local storage but not the attempt
	reopened := newBrowser(t, srv.Engine)
	reopened.cookies[middlewares.BrowserCookie] = b.cookies[middlewares.BrowserCookie]

	_, env = reopened.do(http.MethodGet, "/api/orders/"+orderID+"/payment-links", nil)
	decode(t, env, &view)
	assert.False(t, view.Attempted)

	_, env = reopened.do(http.MethodGet, "/api/order-status?table=4", nil)
	decode(t, env, &status)
	assert.Equal(t, orderID, status.OrderID)
	assert.Equal(t, services.SourceStorage, status.Source)
}

func TestPaymentLinksCompletedOrder(t *testing.T) {
	srv, fb := setupServer(t)
	b := newBrowser(t, srv.Engine)
	orderID := placeOrder(t, b, "4", 1)
	require.True(t, fb.SetStatus(orderID, models.StatusCompleted))

	_, env := b.do(http.MethodGet, "/api/orders/"+orderID+"/payment-links", nil)
	var view controllers.PaymentView
	decode(t, env, &view)
	assert.False(t, view.Payable)
	assert.Empty(t, view.Links)
}

func TestPaymentLinksUnknownOrder(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	w, env := b.do(http.MethodGet, "/api/orders/unknown/payment-links", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order not found", env.Message)
}
