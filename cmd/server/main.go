package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"store-backend/internal/audit"
	"store-backend/internal/auth"
	"store-backend/internal/config"
	"store-backend/internal/customer"
	"store-backend/internal/dashboard"
	"store-backend/internal/database"
	"store-backend/internal/events"
	"store-backend/internal/inventory"
	"store-backend/internal/logger"
	"store-backend/internal/models"
	"store-backend/internal/observability"
	"store-backend/internal/purchase"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger henüz yok
		zap.NewExample().Fatal("config yüklenemedi", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		zap.NewExample().Fatal("logger oluşturulamadı", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		log.Fatal("tracing başlatılamadı", zap.Error(err))
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.Fatal("veritabanı açılamadı", zap.Error(err))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("alım olayları Kafka'ya yayınlanacak",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	ledger := inventory.NewLedger()
	svc := purchase.NewService(db, ledger,
		purchase.WithPublisher(publisher),
		purchase.WithLogger(log.Named("purchase")),
		purchase.WithMaxRetries(cfg.TxMaxRetries),
		purchase.WithPublishTimeout(cfg.PublishTimeout),
	)

	app := newApp(cfg, db, ledger, svc, log)

	go func() {
		log.Info("Server çalışıyor", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			log.Error("server durdu", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("kapatılıyor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server kapatılamadı", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		log.Error("publisher kapatılamadı", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing kapatılamadı", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newApp(cfg *config.Config, db *gorm.DB, ledger *inventory.Ledger, svc *purchase.Service, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error("beklenmeyen hata",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.RequestLogger(log))

	// CORS origins virgülle ayrılmış string
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Katalog (okuma herkes)
	protected.Get("/products", inventory.ListProductsHandler(db))
	protected.Get("/products/:id", inventory.GetProductHandler(db))
	protected.Get("/products/:id/stock", inventory.GetProductStockHandler(db, ledger))
	protected.Get("/stock", inventory.GetCurrentStockHandler(db))

	// Müşteriler
	protected.Get("/customers", customer.ListCustomersHandler(db))
	protected.Get("/customers/:id", customer.GetCustomerHandler(db))
	protected.Post("/customers", customer.CreateCustomerHandler(db))
	protected.Put("/customers/:id", customer.UpdateCustomerHandler(db))

	// Alımlar
	protected.Get("/purchases", purchase.ListPurchasesHandler(svc))
	protected.Get("/purchases/:id", purchase.GetPurchaseHandler(svc))
	protected.Post("/purchases", purchase.CreatePurchaseHandler(svc))
	protected.Post("/purchases/:id/cancel", purchase.CancelPurchaseHandler(svc))
	protected.Get("/purchases/:id/cancellations", purchase.ListCancellationsHandler(svc))

	// Dashboard
	protected.Get("/dashboard/sales", dashboard.SalesChartHandler(db))

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", auth.CreateUserHandler(db))

	// Ürün yönetimi
	adminRoutes.Post("/products", inventory.CreateProductHandler(db))
	adminRoutes.Put("/products/:id", inventory.UpdateProductHandler(db))
	adminRoutes.Delete("/products/:id", inventory.DeleteProductHandler(db))

	adminRoutes.Delete("/customers/:id", customer.DeleteCustomerHandler(db))

	// Audit logs
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	return app
}
