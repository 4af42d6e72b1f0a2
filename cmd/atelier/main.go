package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/loomworks/atelier/internal/config"
	"github.com/loomworks/atelier/internal/mes/entity"
	"github.com/loomworks/atelier/internal/mes/handler"
	"github.com/loomworks/atelier/internal/mes/repository"
	"github.com/loomworks/atelier/internal/mes/service"
	"github.com/loomworks/atelier/internal/middleware"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

	zapLogger.Info("Starting atelier service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate tables", zap.Error(err))
	}
	if err := entity.SeedFallbackMaterial(db); err != nil {
		zapLogger.Fatal("Failed to seed fallback material", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, zapLogger, cfg.Cache.WorkersTTL)

	archiver, err := service.NewReportArchiver(service.ArchiverConfig{
		Endpoint:  cfg.MinIO.Endpoint,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init report archiver", zap.Error(err))
	}
	if archiver != nil {
		if err := archiver.EnsureBucket(context.Background()); err != nil {
			zapLogger.Fatal("Failed to ensure report bucket", zap.Error(err))
		}
	}

	handlers := handler.NewHandlers(services, repos, archiver, zapLogger)

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

	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "atelier"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "atelier"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "atelier"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "atelier",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	registerRoutes(router, handlers, cfg.JWT.Secret)

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

func registerRoutes(router *gin.Engine, handlers *handler.Handlers, jwtSecret string) {
	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	{
		// 订单管理
		orders := v1.Group("/orders")
		{
			orders.GET("", handlers.Order.List)
			orders.POST("", handlers.Order.Create)
			orders.POST("/report", handlers.Report.Generate)
			orders.GET("/:id", handlers.Order.Get)
			orders.PUT("/:id", handlers.Order.Update)
			orders.DELETE("/:id", middleware.RequireRole("manager"), handlers.Order.Delete)
			orders.PATCH("/:id/status", handlers.Order.UpdateStatus)
			orders.PATCH("/:id/worker", handlers.Order.UpdateWorker)
			orders.GET("/:id/timeline", handlers.Order.Timeline)
		}

		// 工人列表
		workers := v1.Group("/workers")
		{
			workers.GET("", handlers.Worker.List)
			workers.POST("/cache/clear", handlers.Worker.ClearCache)
		}

		// 产品
		v1.GET("/products", handlers.Product.List)

		// 物料流水
		v1.GET("/movements", handlers.Movement.List)
	}
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
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormConfig)
	default:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	}
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
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}
