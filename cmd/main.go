package main

import (
	"asset-service/internal/handler"
	mid "asset-service/internal/middleware"
	"asset-service/pkg/config"
	"asset-service/pkg/database"
	"asset-service/pkg/jwtutil"
	"asset-service/pkg/logger"
	"asset-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration (reads .env if present)
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting asset-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize JWT utility
	jwtutil.Initialize(&appConfig.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Category API routes
	categoryAPI := e.Group("/api/categories", mid.AuthMiddleware)
	categoryAPI.GET("", handler.ListCategories)
	categoryAPI.GET("/:id", handler.GetCategory)
	categoryAPI.POST("", handler.CreateCategory)
	categoryAPI.PUT("/:id", handler.UpdateCategory)
	categoryAPI.DELETE("/:id", handler.DeleteCategory)

	// Location API routes
	locationAPI := e.Group("/api/locations", mid.AuthMiddleware)
	locationAPI.GET("", handler.ListLocations)
	locationAPI.GET("/:id", handler.GetLocation)
	locationAPI.POST("", handler.CreateLocation)
	locationAPI.PUT("/:id", handler.UpdateLocation)
	locationAPI.DELETE("/:id", handler.DeleteLocation)

	// Asset API routes
	assetAPI := e.Group("/api/assets", mid.AuthMiddleware)
	assetAPI.GET("", handler.ListAssets)
	assetAPI.GET("/:id", handler.GetAsset)
	assetAPI.POST("", handler.CreateAsset)
	assetAPI.PUT("/:id", handler.UpdateAsset)
	assetAPI.DELETE("/:id", handler.DeleteAsset)
	assetAPI.GET("/:id/transactions", handler.ListAssetTransactions)

	// Transition endpoints - only ADMIN/CUSTODIAN (or superusers) may move assets
	assetAPI.POST("/:id/checkout", handler.CheckoutAsset, mid.RequireMovementRole)
	assetAPI.POST("/:id/return", handler.ReturnAsset, mid.RequireMovementRole)
	assetAPI.POST("/:id/transfer", handler.TransferAsset, mid.RequireMovementRole)
	assetAPI.POST("/:id/retire", handler.RetireAsset, mid.RequireMovementRole)
	assetAPI.POST("/:id/repair", handler.RepairAsset, mid.RequireMovementRole)

	// Ledger API routes (read-only)
	transactionAPI := e.Group("/api/transactions", mid.AuthMiddleware)
	transactionAPI.GET("", handler.ListTransactions)

	// User reference routes
	userAPI := e.Group("/api/users", mid.AuthMiddleware)
	userAPI.GET("", handler.ListUsers)

	// Start server
	port := appConfig.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
