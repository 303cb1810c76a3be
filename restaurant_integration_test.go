package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/table-order/config"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/fakebackend"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/router"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

func TestMain(m *testing.M) {
	utils.InitLogger("error")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndIntegration walks the main flow:
// 1. Open the menu from the table QR
// 2. Fill the cart and place the order
// 3. Follow the order status and note the UPI payment
// 4. Staff unlock the dashboard and move the order to completed
// 5. Staff end the table session
func TestEndToEndIntegration(t *testing.T) {
	fb := fakebackend.NewSeeded()
	api := httptest.NewServer(fb.Handler())
	defer api.Close()

	db := setupTestDB(t)
	srv, err := router.SetupRouter(testConfig(api.URL), db, services.NewBackendClientWithHTTP(api.URL, api.Client()))
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	c := &client{t: t, r: srv.Engine, cookies: map[string]*http.Cookie{}}

	openMenuTest(t, c)
	orderID := placeOrderTest(t, c)
	statusTest(t, c, orderID, models.StatusPending)
	paymentTest(t, c, orderID)

	c.call(http.MethodPost, "/api/admin/login", map[string]string{"pin": "2512"}, http.StatusOK, nil)
	for _, want := range []models.OrderStatus{models.StatusPreparing, models.StatusReady, models.StatusCompleted} {
		c.call(http.MethodPost, "/api/admin/orders/"+orderID+"/advance", nil, http.StatusOK, nil)
		statusTest(t, c, orderID, want)
	}

	// payment links disappear once the order is completed
	var links struct {
		Links []services.PaymentLink `json:"links"`
	}
	c.call(http.MethodGet, "/api/orders/"+orderID+"/payment-links", nil, http.StatusOK, &links)
	if len(links.Links) != 0 {
		t.Fatalf("completed order still offers %d payment links", len(links.Links))
	}

	c.call(http.MethodPost, "/api/admin/tables/3/end-session?confirm=true", nil, http.StatusOK, nil)
	var status struct {
		TableOrders []models.OrderSummary `json:"tableOrders"`
	}
	c.call(http.MethodGet, "/api/order-status?table=3", nil, http.StatusOK, &status)
	if len(status.TableOrders) != 0 {
		t.Fatalf("expected no open orders after end-session, got %d", len(status.TableOrders))
	}
}

// TestSessionStoragePurge checks that stale session-scoped entries are
// dropped when the server starts while local entries stay.
func TestSessionStoragePurge(t *testing.T) {
	api := httptest.NewServer(fakebackend.New().Handler())
	defer api.Close()

	db := setupTestDB(t)
	old := time.Now().Add(-48 * time.Hour)
	entries := []models.StorageEntry{
		{Namespace: "session:old", Key: services.AttemptedOrdersKey, Value: `["a"]`, CreatedAt: old, UpdatedAt: old},
		{Namespace: "browser:old", Key: "cart", Value: `[]`, CreatedAt: old, UpdatedAt: old},
	}
	if err := db.Create(&entries).Error; err != nil {
		t.Fatalf("seed storage: %v", err)
	}
	fresh := database.NewGormStore(db, "session:fresh")
	if err := fresh.Set(services.AttemptedOrdersKey, `["b"]`); err != nil {
		t.Fatalf("seed fresh session: %v", err)
	}

	srv, err := router.SetupRouter(testConfig(api.URL), db, services.NewBackendClientWithHTTP(api.URL, api.Client()))
	if err != nil {
		t.Fatalf("setup router: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)
	defer srv.Stop()

	assert.Eventually(t, func() bool {
		var n int64
		db.Model(&models.StorageEntry{}).Where("namespace = ?", "session:old").Count(&n)
		return n == 0
	}, 5*time.Second, 20*time.Millisecond)

	var remaining []string
	db.Model(&models.StorageEntry{}).Order("namespace").Pluck("namespace", &remaining)
	assert.Equal(t, []string{"browser:old", "session:fresh"}, remaining)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		APIBaseURL:        apiURL,
		StoreDriver:       "sqlite",
		AdminPIN:          "2512",
		JWTSecret:         "integration-secret",
		MerchantVPA:       "cafe@upi",
		MerchantName:      "Test Cafe",
		OrderPollInterval: 50 * time.Millisecond,
		AdminPollInterval: time.Second,
		MenuCacheTTL:      time.Minute,
		HTTPTimeout:       5 * time.Second,
		AllowedOrigin:     "*",
	}
}

// client keeps the visitor cookies between calls.
type client struct {
	t       *testing.T
	r       *gin.Engine
	cookies map[string]*http.Cookie
}

func (c *client) call(method, path string, body interface{}, wantCode int, out interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}

	if w.Code != wantCode {
		c.t.Fatalf("%s %s: expected %d, got %d, body=%s", method, path, wantCode, w.Code, w.Body.String())
	}
	var resp struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		c.t.Fatalf("%s %s: bad body %s", method, path, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			c.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

// openMenuTest -> GET /api/menu?table=3
func openMenuTest(t *testing.T, c *client) {
	var menu struct {
		Table      int `json:"table"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
	}
	c.call(http.MethodGet, "/api/menu?table=3", nil, http.StatusOK, &menu)
	if menu.Table != 3 || len(menu.Categories) != 2 {
		t.Fatalf("openMenuTest: unexpected menu %+v", menu)
	}
}

// placeOrderTest -> two Cappuccinos and a Club Sandwich, then POST /api/orders
func placeOrderTest(t *testing.T, c *client) string {
	for _, id := range []int{1, 1, 3} {
		c.call(http.MethodPost, "/api/cart/items?table=3", map[string]int{"itemId": id}, http.StatusOK, nil)
	}

	var placed struct {
		OrderID string        `json:"orderId"`
		Totals  models.Totals `json:"totals"`
	}
	c.call(http.MethodPost, "/api/orders?table=3", nil, http.StatusCreated, &placed)
	if placed.OrderID == "" {
		t.Fatalf("placeOrderTest: empty order id")
	}
	// 490 + round(24.5) = 515
	if placed.Totals.Subtotal != 490 || placed.Totals.Tax != 25 || placed.Totals.Total != 515 {
		t.Fatalf("placeOrderTest: unexpected totals %+v", placed.Totals)
	}
	return placed.OrderID
}

// statusTest -> GET /api/order-status?table=3 resolves the stored order
func statusTest(t *testing.T, c *client, orderID string, want models.OrderStatus) {
	var status struct {
		OrderID string `json:"orderId"`
		Order   struct {
			Status models.OrderStatus `json:"status"`
			Total  float64            `json:"total"`
		} `json:"order"`
	}
	c.call(http.MethodGet, "/api/order-status?table=3", nil, http.StatusOK, &status)
	if status.OrderID != orderID {
		t.Fatalf("statusTest: expected order %s, got %s", orderID, status.OrderID)
	}
	if status.Order.Status != want {
		t.Fatalf("statusTest: expected %s, got %s", want, status.Order.Status)
	}
	if status.Order.Total != 515 {
		t.Fatalf("statusTest: expected total 515, got %v", status.Order.Total)
	}
}

// paymentTest -> links for the four UPI apps, then the honor-system tap
func paymentTest(t *testing.T, c *client, orderID string) {
	var links struct {
		Links []services.PaymentLink `json:"links"`
	}
	c.call(http.MethodGet, "/api/orders/"+orderID+"/payment-links", nil, http.StatusOK, &links)
	if len(links.Links) != 4 {
		t.Fatalf("paymentTest: expected 4 links, got %d", len(links.Links))
	}
	c.call(http.MethodPost, "/api/orders/"+orderID+"/payment-attempt", nil, http.StatusOK, nil)

	var status struct {
		PaymentAttempted bool `json:"paymentAttempted"`
	}
	c.call(http.MethodGet, "/api/order-status?table=3", nil, http.StatusOK, &status)
	if !status.PaymentAttempted {
		t.Fatalf("paymentTest: attempt was not recorded")
	}
}
