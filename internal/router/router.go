package router

import (
	"hbpos/internal/config"
	"hbpos/internal/handler"
	"hbpos/internal/infra"
	"hbpos/internal/middleware"
	"hbpos/internal/repository"
	"hbpos/internal/service"
	"hbpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// rdb may be nil: caching, shared rate limits and confirmation emails are
// then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	limit, err := middleware.RateLimiter(cfg.RateLimit, rdb)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())

	// ── Infrastructure ───────────────────────────────────────────────────────
	cache := infra.NewJSONCache(rdb)
	var notifier service.SaleNotifier
	if rdb != nil {
		notifier = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	ledgerRepo := repository.NewStockTransactionRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	voucherRepo := repository.NewVoucherRepository(db)
	categoryRepo := repository.NewVoucherCategoryRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	inventorySvc := service.NewInventoryService(productRepo, ledgerRepo, service.SystemClock)
	voucherSvc := service.NewVoucherService(voucherRepo, categoryRepo, cache, service.VoucherOptions{
		CodePrefix: cfg.VoucherCodePrefix,
	})
	customerSvc := service.NewCustomerService(customerRepo, service.SystemClock)
	productSvc := service.NewProductService(productRepo, cache)
	saleSvc := service.NewSaleService(saleRepo, inventorySvc, voucherSvc, customerSvc, productSvc, notifier, service.SaleOptions{
		StrictProductLookup:     cfg.StrictProductLookup,
		StrictVoucherRedemption: cfg.StrictVoucherRedemption,
		IncludeCustomDiscount:   cfg.IncludeCustomDiscount,
		OrderCodePrefix:         cfg.OrderCodePrefix,
	}, service.SystemClock)

	// ── Handlers ─────────────────────────────────────────────────────────────
	salesH := handler.NewSalesHandler(saleSvc, cfg.IsDevelopment())
	vouchersH := handler.NewVouchersHandler(voucherSvc)
	productsH := handler.NewProductsHandler(productSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	staff := middleware.RequireRole(middleware.RoleAdmin, middleware.RoleCashier)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	v1 := r.Group("/v1", limit, middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.POST("/sales", staff, salesH.Submit)
		v1.GET("/sales/:id", staff, salesH.Get)

		v1.GET("/products/lookup", staff, productsH.Lookup)

		v1.GET("/vouchers/lookup", staff, vouchersH.Lookup)
		v1.GET("/voucher-categories", staff, vouchersH.ListCategories)
		v1.POST("/voucher-categories", admin, vouchersH.CreateCategory)
		v1.POST("/vouchers", admin, vouchersH.Create)
		v1.DELETE("/vouchers/:id", admin, vouchersH.Delete)
	}

	// Swagger UI: only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}
