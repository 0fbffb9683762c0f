package server

import (
	"go-inventory-pos/internal/apperror"
	"go-inventory-pos/internal/auth"
	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/handler"
	"go-inventory-pos/internal/metrics"
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/ratelimit"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const wsUserKey = "ws_user_id"

// Deps are the long-lived collaborators of the HTTP server. Limiter may be nil to disable
// rate limiting.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Resolver *auth.Resolver
	Limiter  ratelimit.Limiter
	Metrics  *metrics.Metrics
	Hub      *ws.Hub
}

// New wires repositories, services and handlers and registers every route.
func New(d Deps) *fiber.App {
	opts := service.OptionsFromConfig(d.Config)

	// Repositories
	categoryRepo := repository.NewCategoryRepo(d.DB)
	productRepo := repository.NewProductRepo(d.DB)
	movementRepo := repository.NewStockMovementRepo(d.DB)
	salesRepo := repository.NewSalesRepo(d.DB)
	dashboardRepo := repository.NewDashboardRepo(d.DB)

	// Services
	var publisher ws.Publisher
	if d.Hub != nil {
		publisher = d.Hub
	}
	categoryService := service.NewCategoryService(categoryRepo, productRepo, d.DB, opts, d.Log)
	productService := service.NewProductService(productRepo, categoryRepo, movementRepo, d.DB, publisher, d.Metrics, opts, d.Log)
	ledgerService := service.NewLedgerService(productRepo, movementRepo, salesRepo, d.DB, publisher, d.Metrics, opts, d.Log)
	salesService := service.NewSalesService(productRepo, salesRepo, d.DB, publisher, d.Metrics, opts, d.Log)
	dashboardService := service.NewDashboardService(movementRepo, dashboardRepo, opts)

	// Handlers
	categoryHandler := handler.NewCategoryHandler(categoryService)
	productHandler := handler.NewProductHandler(productService)
	stockHandler := handler.NewStockHandler(ledgerService)
	salesHandler := handler.NewSalesHandler(salesService)
	dashHandler := handler.NewDashboardHandler(dashboardService)

	app := fiber.New(fiber.Config{
		AppName:               "Inventory POS v1.0",
		ErrorHandler:          handler.ErrorHandler(d.Log),
		ProxyHeader:           d.Config.Server.ProxyHeader,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Output: zap.NewStdLog(d.Log.Named("http")).Writer(),
		Format: "${status} - ${method} ${path} ${latency}\n",
	}))
	app.Use(middleware.Metrics(d.Metrics))
	app.Use(cors.New())

	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	api := app.Group("/api/v1", middleware.Authenticate(d.Resolver))
	if d.Limiter != nil {
		api.Use(middleware.RateLimit(d.Limiter, middleware.RateLimitConfig{
			Limit:  d.Config.RateLimit.Requests,
			Window: d.Config.RateLimit.Window,
		}, d.Metrics, d.Log))
	}
	api.Use(middleware.RejectInvalid())

	// ============ PUBLIC ROUTES ============
	api.Get("/health", handler.Health)
	api.Get("/categories", categoryHandler.List)
	api.Post("/categories", categoryHandler.Create)
	api.Delete("/categories/:id", categoryHandler.Delete)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireUser())

	protected.Get("/auth/me", handler.Me)

	protected.Get("/products", productHandler.List)
	protected.Post("/products", productHandler.Upsert)
	protected.Get("/products/search", productHandler.Search)
	protected.Get("/products/category/:categoryId", productHandler.ListByCategory)
	protected.Delete("/products/:id", productHandler.Deactivate)
	protected.Post("/products/:id/movements", stockHandler.Record)
	protected.Get("/products/:id/movements", stockHandler.History)
	protected.Get("/products/:id/reconcile", stockHandler.Reconcile)

	protected.Post("/sales", salesHandler.Record)
	protected.Get("/sales", salesHandler.List)
	protected.Get("/sales/:id", salesHandler.Get)

	protected.Get("/dashboard/stats", dashHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", dashHandler.GetStockMovement)

	if d.Hub != nil {
		registerLiveFeed(app, d.Hub, d.Resolver)
	}
	return app
}

// registerLiveFeed mounts /ws. Browsers cannot set headers on upgrade requests, so the token
// travels in the query string.
func registerLiveFeed(app *fiber.App, hub *ws.Hub, resolver *auth.Resolver) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		id := resolver.ResolveToken(c.Query("token"))
		if !id.IsAuthenticated() {
			return apperror.Unauthorized("Invalid or missing token")
		}
		c.Locals(wsUserKey, id.UserID)
		return c.Next()
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(wsUserKey).(string)
		hub.Register(userID, c)
		defer hub.Unregister(userID, c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))
}
