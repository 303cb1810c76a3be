// Package fakebackend is an in-memory stand-in for the restaurant REST
// backend. It serves the same routes and JSON shapes and is used by the
// tests and the demo-backend command.
package fakebackend

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/utils"
)

type item struct {
	ID          int
	CategoryID  int
	Name        string
	Price       float64
	IsAvailable bool
	ImageURL    string
}

type order struct {
	ID         string
	Table      int
	GuestToken string
	Status     models.OrderStatus
	CreatedAt  time.Time
	Items      []models.OrderItem
	Subtotal   float64
	Tax        float64
	Total      float64
	Closed     bool
}

// Backend holds the menu and the orders. The zero value is not usable; call
// New.
type Backend struct {
	MaxTable int

	mu         sync.Mutex
	categories []models.Category
	items      map[int]*item
	orders     map[string]*order
	nextCat    int
	nextItem   int
	now        func() time.Time
	requests   map[string]int
}

func New() *Backend {
	return &Backend{
		MaxTable: 20,
		items:    make(map[int]*item),
		orders:   make(map[string]*order),
		nextCat:  1,
		nextItem: 1,
		now:      time.Now,
		requests: make(map[string]int),
	}
}

// NewSeeded returns a backend with a small cafe menu.
func NewSeeded() *Backend {
	b := New()
	coffee := b.AddCategory("Coffee")
	snacks := b.AddCategory("Snacks")
	b.AddItem(coffee, "Cappuccino", 120, true)
	b.AddItem(coffee, "Cold Brew", 150, true)
	b.AddItem(snacks, "Club Sandwich", 250, true)
	b.AddItem(snacks, "Brownie", 90, false)
	return b
}

func (b *Backend) AddCategory(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextCat
	b.nextCat++
	b.categories = append(b.categories, models.Category{ID: id, Name: name})
	return id
}

func (b *Backend) AddItem(categoryID int, name string, price float64, available bool) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextItem
	b.nextItem++
	b.items[id] = &item{ID: id, CategoryID: categoryID, Name: name, Price: price, IsAvailable: available}
	return id
}

// SetStatus changes an order behind the client's back, like the kitchen would.
func (b *Backend) SetStatus(orderID string, status models.OrderStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if ok {
		o.Status = status
	}
	return ok
}

// Requests returns how many times "METHOD /route" was hit.
func (b *Backend) Requests(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

// Handler returns the gin engine serving the backend routes.
func (b *Backend) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Next()
		b.mu.Lock()
		b.requests[c.Request.Method+" "+c.FullPath()]++
		b.mu.Unlock()
	})

	r.GET("/menu", b.getMenu)
	r.POST("/orders", b.createOrder)
	r.GET("/orders/:id", b.getOrder)
	r.GET("/orders/table/:table", b.tableOrders)
	r.PATCH("/orders/:id/status", b.updateStatus)

	admin := r.Group("/admin")
	admin.GET("/categories", b.listCategories)
	admin.POST("/categories", b.createCategory)
	admin.PATCH("/categories/:id", b.updateCategory)
	admin.DELETE("/categories/:id", b.deleteCategory)
	admin.GET("/menu-items", b.listItems)
	admin.POST("/menu-items", b.createItem)
	admin.PATCH("/menu-items/:id", b.updateItem)
	admin.DELETE("/menu-items/:id", b.deleteItem)
	admin.POST("/menu-items/:id/image", b.uploadImage)
	admin.GET("/tables", b.listTables)
	admin.POST("/tables/:table/end-session", b.endSession)
	return r
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"message": msg})
}

func (b *Backend) table(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > b.MaxTable {
		return 0, false
	}
	return n, true
}

func (it *item) menuJSON() gin.H {
	h := gin.H{
		"id":          it.ID,
		"name":        it.Name,
		"price":       strconv.FormatFloat(it.Price, 'f', 2, 64),
		"isAvailable": it.IsAvailable,
	}
	if it.ImageURL != "" {
		h["imageUrl"] = it.ImageURL
	}
	return h
}

func (it *item) adminJSON() models.MenuItem {
	return models.MenuItem{
		ID:          it.ID,
		CategoryID:  it.CategoryID,
		Name:        it.Name,
		Price:       models.Price(it.Price),
		IsAvailable: it.IsAvailable,
		ImageURL:    it.ImageURL,
	}
}

func (b *Backend) sortedItems() []*item {
	out := make([]*item, 0, len(b.items))
	for _, it := range b.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GET /menu?table=<n>; prices are sent as strings.
func (b *Backend) getMenu(c *gin.Context) {
	if _, ok := b.table(c.Query("table")); !ok {
		fail(c, http.StatusBadRequest, "Invalid table number")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cats := make([]gin.H, 0, len(b.categories))
	for _, cat := range b.categories {
		items := []gin.H{}
		for _, it := range b.sortedItems() {
			if it.CategoryID == cat.ID {
				items = append(items, it.menuJSON())
			}
		}
		cats = append(cats, gin.H{"id": cat.ID, "name": cat.Name, "items": items})
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (b *Backend) createOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	table, ok := b.table(req.Table)
	if !ok {
		fail(c, http.StatusBadRequest, "Invalid table number")
		return
	}
	if len(req.Items) == 0 {
		fail(c, http.StatusBadRequest, "Order must contain at least one item")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	o := &order{
		ID:         uuid.NewString(),
		Table:      table,
		GuestToken: req.GuestToken,
		Status:     models.StatusPending,
		CreatedAt:  b.now().UTC(),
	}
	var cart models.Cart
	for _, line := range req.Items {
		it, ok := b.items[line.MenuItemID]
		if !ok {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Menu item %d not found", line.MenuItemID))
			return
		}
		if !it.IsAvailable {
			fail(c, http.StatusBadRequest, fmt.Sprintf("%s is not available", it.Name))
			return
		}
		if line.Quantity < 1 {
			fail(c, http.StatusBadRequest, "Quantity must be positive")
			return
		}
		cart = append(cart, models.CartLine{ItemID: it.ID, Name: it.Name, UnitPrice: it.Price, Quantity: line.Quantity})
		o.Items = append(o.Items, models.OrderItem{
			Name:      it.Name,
			Quantity:  line.Quantity,
			UnitPrice: it.Price,
			LineTotal: it.Price * float64(line.Quantity),
		})
	}
	totals := cart.Totals()
	o.Subtotal, o.Tax, o.Total = totals.Subtotal, totals.Tax, totals.Total
	b.orders[o.ID] = o

	utils.InfoLogger.Printf("fake backend: order %s for table %d", o.ID, table)
	c.JSON(http.StatusCreated, models.CreateOrderResponse{OrderID: o.ID, Message: "Order placed successfully"})
}

func (o *order) detail() models.Order {
	return models.Order{
		ID:          o.ID,
		TableNumber: o.Table,
		Status:      o.Status,
		CreatedAt:   models.Timestamp{Time: o.CreatedAt},
		Subtotal:    o.Subtotal,
		Tax:         o.Tax,
		Total:       o.Total,
		Items:       o.Items,
	}
}

func (o *order) summary() models.OrderSummary {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return models.OrderSummary{
		ID:        o.ID,
		Status:    o.Status,
		CreatedAt: models.Timestamp{Time: o.CreatedAt},
		Subtotal:  o.Subtotal,
		Tax:       o.Tax,
		Total:     o.Total,
		ItemCount: count,
	}
}

func (b *Backend) getOrder(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[c.Param("id")]
	if !ok {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	c.JSON(http.StatusOK, o.detail())
}

// GET /orders/table/:table, newest first, optionally filtered by guest.
func (b *Backend) tableOrders(c *gin.Context) {
	table, ok := b.table(c.Param("table"))
	if !ok {
		fail(c, http.StatusNotFound, "Table not found")
		return
	}
	guest := c.Query("guestToken")

	b.mu.Lock()
	defer b.mu.Unlock()
	var list []*order
	for _, o := range b.orders {
		if o.Table != table || o.Closed {
			continue
		}
		if guest != "" && o.GuestToken != guest {
			continue
		}
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	out := make([]models.OrderSummary, 0, len(list))
	for _, o := range list {
		out = append(out, o.summary())
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) updateStatus(c *gin.Context) {
	var req models.StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[c.Param("id")]
	if !ok {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	o.Status = req.Status
	c.JSON(http.StatusOK, o.detail())
}

func (b *Backend) listCategories(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Category, len(b.categories))
	copy(out, b.categories)
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createCategory(c *gin.Context) {
	var in models.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Category name is required")
		return
	}
	id := b.AddCategory(in.Name)
	c.JSON(http.StatusCreated, models.Category{ID: id, Name: in.Name})
}

func (b *Backend) categoryIndex(raw string) int {
	id, _ := strconv.Atoi(raw)
	for i, cat := range b.categories {
		if cat.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) updateCategory(c *gin.Context) {
	var in models.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Category name is required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.categoryIndex(c.Param("id"))
	if i < 0 {
		fail(c, http.StatusNotFound, "Category not found")
		return
	}
	b.categories[i].Name = in.Name
	c.JSON(http.StatusOK, b.categories[i])
}

func (b *Backend) deleteCategory(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.categoryIndex(c.Param("id"))
	if i < 0 {
		fail(c, http.StatusNotFound, "Category not found")
		return
	}
	id := b.categories[i].ID
	for _, it := range b.items {
		if it.CategoryID == id {
			fail(c, http.StatusBadRequest, "Category still has menu items")
			return
		}
	}
	b.categories = append(b.categories[:i], b.categories[i+1:]...)
	c.Status(http.StatusNoContent)
}

func (b *Backend) listItems(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.MenuItem{}
	for _, it := range b.sortedItems() {
		out = append(out, it.adminJSON())
	}
	c.JSON(http.StatusOK, out)
}

func (b *Backend) createItem(c *gin.Context) {
	var in models.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Name == nil || in.Price == nil || in.CategoryID == nil {
		fail(c, http.StatusBadRequest, "name, price and categoryId are required")
		return
	}
	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}
	b.mu.Lock()
	if b.categoryIndex(strconv.Itoa(*in.CategoryID)) < 0 {
		b.mu.Unlock()
		fail(c, http.StatusBadRequest, "Category not found")
		return
	}
	b.mu.Unlock()
	id := b.AddItem(*in.CategoryID, *in.Name, *in.Price, available)

	b.mu.Lock()
	defer b.mu.Unlock()
	c.JSON(http.StatusCreated, b.items[id].adminJSON())
}

func (b *Backend) findItem(c *gin.Context) (*item, bool) {
	id, _ := strconv.Atoi(c.Param("id"))
	it, ok := b.items[id]
	if !ok {
		fail(c, http.StatusNotFound, "Menu item not found")
	}
	return it, ok
}

func (b *Backend) updateItem(c *gin.Context) {
	var in models.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.findItem(c)
	if !ok {
		return
	}
	if in.Name != nil {
		it.Name = *in.Name
	}
	if in.Price != nil {
		it.Price = *in.Price
	}
	if in.CategoryID != nil {
		it.CategoryID = *in.CategoryID
	}
	if in.IsAvailable != nil {
		it.IsAvailable = *in.IsAvailable
	}
	c.JSON(http.StatusOK, it.adminJSON())
}

func (b *Backend) deleteItem(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.findItem(c)
	if !ok {
		return
	}
	delete(b.items, it.ID)
	c.Status(http.StatusNoContent)
}

// POST /admin/menu-items/:id/image; the stored URL carries a cache-busting
// query string like the real backend.
func (b *Backend) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "No image uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Unreadable image")
		return
	}
	defer f.Close()
	n, _ := io.Copy(io.Discard, f)
	if n == 0 {
		fail(c, http.StatusBadRequest, "Empty image")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.findItem(c)
	if !ok {
		return
	}
	it.ImageURL = fmt.Sprintf("/uploads/menu/%d-%s?t=%d", it.ID, fh.Filename, b.now().UnixMilli())
	c.JSON(http.StatusOK, it.adminJSON())
}

func (b *Backend) listTables(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	active := make(map[int]int)
	for _, o := range b.orders {
		if !o.Closed && o.Status != models.StatusCompleted && o.Status != models.StatusCancelled {
			active[o.Table]++
		}
	}
	out := make([]models.Table, 0, b.MaxTable)
	for n := 1; n <= b.MaxTable; n++ {
		status := "available"
		if active[n] > 0 {
			status = "occupied"
		}
		out = append(out, models.Table{TableNumber: n, Status: status, ActiveOrders: active[n]})
	}
	c.JSON(http.StatusOK, out)
}

// POST /admin/tables/:table/end-session closes every order of the table.
func (b *Backend) endSession(c *gin.Context) {
	table, ok := b.table(c.Param("table"))
	if !ok {
		fail(c, http.StatusBadRequest, "Invalid table number")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	closed := 0
	for _, o := range b.orders {
		if o.Table == table && !o.Closed {
			o.Closed = true
			if o.Status != models.StatusCancelled {
				o.Status = models.StatusCompleted
			}
			closed++
		}
	}
	c.JSON(http.StatusOK, models.EndSessionResponse{
		Message:      fmt.Sprintf("Session ended for table %d", table),
		ClosedOrders: closed,
	})
}
