package router

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/config"
	"github.com/yeremiapane/table-order/controllers"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/kds"
	"github.com/yeremiapane/table-order/middlewares"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
	"gorm.io/gorm"
)

// browserCookieMaxAge keeps the persistent visitor cookie for a year.
const browserCookieMaxAge = 365 * 24 * 60 * 60

// SessionRetention is how long session-scoped storage survives without a
// write.
const SessionRetention = 24 * time.Hour

// Server is the web front together with its background loops.
type Server struct {
	Engine *gin.Engine
	Hub    *kds.Hub
	Feed   *kds.OrderFeed
	Purger *services.Poller
}

// SetupRouter wires the controllers against backend. db holds the visitor
// storage.
func SetupRouter(cfg *config.Config, db *gorm.DB, backend services.Backend) (*Server, error) {
	gate, err := services.NewAdminGate(cfg.AdminPIN)
	if err != nil {
		return nil, err
	}
	signer := utils.NewTokenSigner(cfg.JWTSecret, time.Duration(browserCookieMaxAge)*time.Second)
	merchant := services.Merchant{VPA: cfg.MerchantVPA, Name: cfg.MerchantName}

	menus := services.NewMenuService(backend, cfg.MenuCacheTTL)
	admin := services.NewAdminService(backend, menus)
	submitter := services.NewOrderSubmitter(backend)
	reconciler := services.NewOrderReconciler(backend, merchant)

	hub := kds.NewHub()
	feed := kds.NewOrderFeed(hub, admin, cfg.AdminPollInterval)

	purger := services.NewPoller("session-purge", time.Hour, func(ctx context.Context) error {
		n, err := database.PurgeStale(db.WithContext(ctx), middlewares.SessionNamespacePrefix+"%", time.Now().Add(-SessionRetention))
		if err != nil {
			return fmt.Errorf("purge session storage: %w", err)
		}
		if n > 0 {
			utils.InfoLogger.Printf("Purged %d stale session entries", n)
		}
		return nil
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(cfg.AllowedOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if cfg.RateLimitPerMinute > 0 {
		// The status stream is one long-lived request per open page.
		r.Use(middlewares.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).
			Exempt("/api/order-status/stream").
			RateLimit())
	}

	menuCtrl := controllers.NewMenuController(menus)
	cartCtrl := controllers.NewCartController(menus)
	orderCtrl := controllers.NewOrderController(submitter, reconciler, cfg.OrderPollInterval)
	paymentCtrl := controllers.NewPaymentController(reconciler, merchant)
	adminCtrl := controllers.NewAdminController(gate, admin, feed)
	categoryCtrl := controllers.NewMenuCategoryController(admin, hub)
	itemCtrl := controllers.NewMenuItemController(admin, hub)
	kdsCtrl := controllers.NewKDSController(hub, feed, cfg.AllowedOrigin)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	api.Use(middlewares.VisitorSession(signer, db, cfg.StoreMaxValueBytes, browserCookieMaxAge))

	// ----------------------------------------------------------------
	//                      CUSTOMER ROUTES
	// ----------------------------------------------------------------
	api.GET("/menu", menuCtrl.GetMenu)

	api.GET("/cart", cartCtrl.GetCart)
	api.DELETE("/cart", cartCtrl.ClearCart)
	api.POST("/cart/items", cartCtrl.AddItem)
	api.POST("/cart/items/:id/increment", cartCtrl.Increment)
	api.POST("/cart/items/:id/decrement", cartCtrl.Decrement)

	api.POST("/orders", middlewares.OrderLoggerMiddleware(), orderCtrl.PlaceOrder)
	api.GET("/orders/:id", orderCtrl.GetOrder)
	api.GET("/order-status", orderCtrl.GetStatus)
	api.GET("/order-status/stream", orderCtrl.StreamStatus)

	payments := api.Group("/orders/:id")
	payments.Use(middlewares.PaymentHeaders())
	{
		payments.GET("/payment-links", paymentCtrl.GetPaymentLinks)
		payments.POST("/payment-attempt", middlewares.LogPaymentAttempt(), paymentCtrl.MarkAttempted)
	}

	// ----------------------------------------------------------------
	//                      ADMIN ROUTES
	// ----------------------------------------------------------------
	api.POST("/admin/login", middlewares.NewLoginLimiter(10*time.Second, 5).Limit(), adminCtrl.Login)
	api.POST("/admin/logout", adminCtrl.Logout)
	api.GET("/admin/session", adminCtrl.Session)

	auth := api.Group("/admin")
	auth.Use(middlewares.AdminOnly(gate))

	auth.GET("/orders", adminCtrl.GetOrders)
	auth.PATCH("/orders/:id/status", adminCtrl.UpdateOrderStatus)
	auth.POST("/orders/:id/advance", adminCtrl.AdvanceOrder)
	auth.POST("/orders/:id/cancel", adminCtrl.CancelOrder)

	auth.GET("/tables", adminCtrl.GetTables)
	auth.POST("/tables/:table/end-session", adminCtrl.EndSession)

	auth.GET("/categories", categoryCtrl.GetAllCategories)
	auth.POST("/categories", categoryCtrl.CreateCategory)
	auth.PATCH("/categories/:id", categoryCtrl.UpdateCategory)
	auth.DELETE("/categories/:id", categoryCtrl.DeleteCategory)

	auth.GET("/menu-items", itemCtrl.GetAllItems)
	auth.POST("/menu-items", itemCtrl.CreateItem)
	auth.PATCH("/menu-items/:id", itemCtrl.UpdateItem)
	auth.PATCH("/menu-items/:id/availability", itemCtrl.SetAvailability)
	auth.DELETE("/menu-items/:id", itemCtrl.DeleteItem)
	auth.POST("/menu-items/:id/image", itemCtrl.UploadImage)

	auth.GET("/feed", middlewares.RequireWebSocket(), kdsCtrl.KDSHandler)

	return &Server{Engine: r, Hub: hub, Feed: feed, Purger: purger}, nil
}

// Start runs the dashboard feed and the session purge until ctx ends.
func (s *Server) Start(ctx context.Context) {
	s.Feed.Start(ctx)
	s.Purger.Start(ctx)
}

func (s *Server) Stop() {
	s.Feed.Stop()
	s.Purger.Stop()
}
