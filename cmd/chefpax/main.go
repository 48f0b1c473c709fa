package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	catalogentity "github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	cataloghandler "github.com/geoffdsims/chefpax-sub000/internal/catalog/handler"
	catalogrepo "github.com/geoffdsims/chefpax-sub000/internal/catalog/repository"
	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/config"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/handler"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/geoffdsims/chefpax-sub000/internal/middleware"
)

// Version 版本信息（编译时注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting chefpax fulfillment service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&catalogentity.Product{},
		&catalogentity.GrowStage{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.Subscription{},
		&entity.SubscriptionItem{},
		&entity.SubscriptionCycle{},
		&entity.CapacitySlot{},
		&entity.InventoryReservation{},
		&entity.ReservationItem{},
		&entity.ProductionTask{},
		&entity.DeliveryJob{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	productRepo := catalogrepo.NewProductRepository(db)
	catalog := catalogsvc.NewCatalogService(productRepo)

	// 预置默认商品目录（已有数据时跳过）
	if err := catalog.EnsureDefaultCatalog(context.Background()); err != nil {
		zapLogger.Warn("Failed to seed default catalog", zap.Error(err))
	}

	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	resRepo := repository.NewReservationRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	slotCache := service.NewSlotCache(rdb, cfg.Fulfillment.SlotCacheTTL)
	slotSvc := service.NewSlotService(orderRepo, subRepo, slotCache, cfg.Fulfillment)
	validatorSvc := service.NewValidatorService(catalog, slotSvc, cfg.Fulfillment)
	yieldSvc := service.NewYieldService(catalog, cfg.Fulfillment)
	reservationSvc := service.NewReservationService(resRepo, catalog, slotCache, cfg.Fulfillment, zapLogger)
	taskSvc := service.NewTaskService(taskRepo, catalog, zapLogger)
	deliverySvc := service.NewDeliveryService(deliveryRepo, zapLogger)
	subscriptionSvc := service.NewSubscriptionService(subRepo, taskSvc, zapLogger)
	orderSvc := service.NewOrderService(orderRepo, catalog, validatorSvc, reservationSvc, taskSvc, deliverySvc, zapLogger)

	services := &handler.Services{
		Slots:         slotSvc,
		Validator:     validatorSvc,
		Orders:        orderSvc,
		Reservations:  reservationSvc,
		Tasks:         taskSvc,
		Subscriptions: subscriptionSvc,
		Deliveries:    deliverySvc,
		Yield:         yieldSvc,
	}
	handlers := handler.NewHandlers(services)
	productHandler := cataloghandler.NewProductHandler(catalog)

	// 定时任务：预约过期回收、任务就绪提升、订阅周期生成
	scheduler := cron.New()
	scheduler.AddFunc("@every 10m", func() {
		ctx := context.Background()
		if n, err := reservationSvc.ExpireStale(ctx, nowUTC()); err != nil {
			zapLogger.Error("Expire stale reservations failed", zap.Error(err))
		} else if n > 0 {
			zapLogger.Info("Expired stale reservations", zap.Int("count", n))
		}
		if n, err := taskSvc.PromoteDue(ctx, nowUTC()); err != nil {
			zapLogger.Error("Promote due tasks failed", zap.Error(err))
		} else if n > 0 {
			zapLogger.Info("Promoted due tasks", zap.Int64("count", n))
		}
	})
	scheduler.AddFunc("@hourly", func() {
		if n, err := subscriptionSvc.RunDueCycles(context.Background(), nowUTC()); err != nil {
			zapLogger.Error("Run due subscription cycles failed", zap.Error(err))
		} else if n > 0 {
			zapLogger.Info("Generated subscription cycles", zap.Int("count", n))
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, productHandler, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func nowUTC() time.Time { return time.Now().UTC() }

func registerRoutes(r *gin.Engine, h *handler.Handlers, products *cataloghandler.ProductHandler, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1")
	{
		// 商品目录
		api.GET("/products", products.List)
		api.GET("/products/:id", products.Get)

		// 配送时段
		api.GET("/delivery-options", h.Slot.ListOptions)
		api.GET("/delivery-options/validate", h.Slot.ValidateBundle)
		api.GET("/delivery-options/check", h.Slot.CheckProduct)

		// 订单
		api.POST("/orders", h.Order.Create)
		api.POST("/orders/:id/confirm", h.Order.Confirm)
		api.GET("/orders/:id", h.Order.Get)

		// 库容预约
		api.POST("/reservations", h.Reservation.Reserve)
		api.POST("/reservations/:id/release", h.Reservation.Release)
		api.GET("/availability", h.Reservation.Availability)

		// 订阅
		api.POST("/subscriptions", h.Subscription.Create)
		api.GET("/subscriptions/:id", h.Subscription.Get)

		// 配送单（物流Webhook回调不鉴权，按单号幂等）
		api.GET("/deliveries/:id", h.Delivery.Get)
		api.POST("/deliveries/:id/webhook", h.Delivery.Webhook)
	}

	// 生产运营接口（需登录）
	staff := api.Group("")
	staff.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		staff.POST("/products", middleware.RequireRole("ops"), products.Create)

		staff.GET("/tasks", h.Task.List)
		staff.POST("/tasks/generate", h.Task.Generate)
		staff.PUT("/tasks/:id/status", h.Task.UpdateStatus)
		staff.GET("/tasks/export", h.Task.Export)

		staff.POST("/plans/yield", h.Plan.ComputeYield)

		staff.POST("/reservations/expire-stale", middleware.RequireRole("ops"), h.Reservation.ExpireStale)
		staff.POST("/subscriptions/run-cycles", middleware.RequireRole("ops"), h.Subscription.RunCycles)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
