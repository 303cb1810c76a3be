package Controllers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/table-order/controllers"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/router"
	"github.com/yeremiapane/table-order/services"
)

func TestGetMenu(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	w, env := b.do(http.MethodGet, "/api/menu?table=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.Status)

	var menu controllers.MenuView
	decode(t, env, &menu)
	assert.Equal(t, 5, menu.Table)
	require.Len(t, menu.Categories, 2)
	assert.Equal(t, "Coffee", menu.Categories[0].Name)
	assert.Equal(t, menu.Categories[0].ID, menu.ActiveCategoryID)

	cappuccino := menu.Categories[0].Items[0]
	assert.Equal(t, "Cappuccino", cappuccino.Name)
	assert.Equal(t, 120.0, cappuccino.Price.Float())
	assert.Equal(t, "/menu-images/1.jpg", cappuccino.DisplayImageURL)
	assert.Equal(t, 0, cappuccino.InCart)

	brownie := menu.Categories[1].Items[1]
	assert.Equal(t, "Brownie", brownie.Name)
	assert.False(t, brownie.IsAvailable)

	assert.Equal(t, 0, menu.Cart.ItemCount)
	assert.Equal(t, "₹0", menu.Cart.Total)

	// both visitor cookies are issued on the first request
	assert.Contains(t, b.cookies, middlewares.BrowserCookie)
	assert.Contains(t, b.cookies, middlewares.SessionCookie)
}

func TestGetMenuShowsCartQuantities(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	b.do(http.MethodPost, "/api/cart/items?table=2", map[string]int{"itemId": 1})
	b.do(http.MethodPost, "/api/cart/items?table=2", map[string]int{"itemId": 1})

	_, env := b.do(http.MethodGet, "/api/menu?table=2", nil)
	var menu controllers.MenuView
	decode(t, env, &menu)
	assert.Equal(t, 2, menu.Categories[0].Items[0].InCart)
	assert.Equal(t, 2, menu.Cart.ItemCount)
	assert.Equal(t, "₹240", menu.Cart.Total)
}

func TestGetMenuWithoutTable(t *testing.T) {
	srv, fb := setupServer(t)
	b := newBrowser(t, srv.Engine)

	for _, path := range []string{"/api/menu", "/api/menu?table=", "/api/menu?table=abc", "/api/menu?table=0"} {
		w, env := b.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "Invalid QR", env.Message, path)
	}
	assert.Zero(t, fb.Requests("GET /menu"))
}

func TestGetMenuTableRejectedByBackend(t *testing.T) {
	srv, _ := setupServer(t)
	b := newBrowser(t, srv.Engine)

	w, env := b.do(http.MethodGet, "/api/menu?table=99", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid table number", env.Message)
}

func TestGetMenuBackendDown(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	api.Close()

	backend := services.NewBackendClientWithHTTP(api.URL, api.Client())
	srv, err := router.SetupRouter(testConfig(api.URL), setupTestDB(t), backend)
	require.NoError(t, err)
	b := newBrowser(t, srv.Engine)

	w, env := b.do(http.MethodGet, "/api/menu?table=1", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.True(t, strings.HasPrefix(env.Message, services.ConnectivityMessage))
	assert.Contains(t, env.Message, services.ConnectivityHint)
}

func TestMenuIsCached(t *testing.T) {
	srv, fb := setupServer(t)
	b := newBrowser(t, srv.Engine)

	b.do(http.MethodGet, "/api/menu?table=1", nil)
	b.do(http.MethodGet, "/api/menu?table=1", nil)
	b.do(http.MethodPost, "/api/cart/items?table=1", map[string]int{"itemId": 2})
	assert.Equal(t, 1, fb.Requests("GET /menu"))
}
