package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ecrimah/tshirts/internal/config"
	"github.com/ecrimah/tshirts/internal/events"
	"github.com/ecrimah/tshirts/internal/handlers"
	"github.com/ecrimah/tshirts/internal/importer"
	"github.com/ecrimah/tshirts/internal/middleware"
	"github.com/ecrimah/tshirts/internal/repository"
	"github.com/ecrimah/tshirts/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repository
	productsRepo := repository.NewProductsRepository(db, redisClient)

	// Initialize object storage for product images
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	blobStore, err := storage.NewS3Store(ctx, cfg.S3Bucket, cfg.S3PublicURL)
	cancel()
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	log.Println("✓ Object storage initialized")

	// Initialize event publisher for audit trail only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if os.Getenv("NATS_URL") != "" {
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Initialize import pipeline and handlers
	pipeline := importer.NewPipeline(
		productsRepo,
		blobStore,
		importer.NewSKUGenerator(),
		logrus.NewEntry(logger).WithField("component", "import-pipeline"),
	)
	productsHandler := handlers.NewProductsHandler(productsRepo)
	importHandler := handlers.NewImportHandler(pipeline, eventsPublisher, logger, cfg.MaxZipSizeMB)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Protected admin API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	api.Use(middleware.RequireAnyRole("admin", "staff"))

	v1 := api.Group("")
	{
		products := v1.Group("/products")
		{
			products.GET("", productsHandler.GetProducts)
			products.GET("/:id", productsHandler.GetProduct)
			products.GET("/:id/variants", productsHandler.GetVariants)
			products.GET("/:id/images", productsHandler.GetProductImages)

			products.GET("/import/template", importHandler.GetImportTemplate)
			products.POST("/import",
				middleware.ImportCooldown(redisClient, time.Duration(cfg.ImportCooldownSeconds)*time.Second, logger),
				importHandler.ImportProducts)
		}

		v1.GET("/categories", productsHandler.GetCategories)
	}

	// Public storefront endpoints (no auth required)
	storefront := router.Group("/api/v1/storefront")
	{
		storefront.GET("/products", productsHandler.GetProducts)
		storefront.GET("/products/:id", productsHandler.GetProduct)
		storefront.GET("/products/:id/variants", productsHandler.GetVariants)
		storefront.GET("/products/:id/images", productsHandler.GetProductImages)
		storefront.GET("/categories", productsHandler.GetCategories)
	}

	// Start server
	port := cfg.Port

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog service...")
	log.Println("Catalog service stopped")
}
