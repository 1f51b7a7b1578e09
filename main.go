package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign/backend/config"
	"github.com/quillsign/quillsign/backend/handler"
	"github.com/quillsign/quillsign/backend/middleware"
	"github.com/quillsign/quillsign/backend/pkg/logger"
	"github.com/quillsign/quillsign/backend/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize object storage
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	// Select the backing store
	var store service.Store
	if cfg.Database.URL != "" {
		pg, err := service.NewPostgresStore(context.Background(), cfg.Database.URL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		store = pg
		slog.Info("using postgres store")
	} else {
		store = service.NewMemoryStore()
		slog.Warn("no database configured, using in-memory store")
	}

	compositorSvc := service.NewCompositorService(&cfg.Compositor)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(store, minioSvc, compositorSvc)
	fieldHandler := handler.NewFieldHandler(store)
	signHandler := handler.NewSignHandler(store, cfg)
	shareHandler := handler.NewShareHandler(store, cfg)
	signatureHandler := handler.NewSignatureHandler(store)
	exportHandler := handler.NewExportHandler(store, minioSvc, compositorSvc)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes: login and the counterparty share-link surface
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/share/:token", shareHandler.Get)
		api.POST("/share/:token/submissions", shareHandler.Submit)
		api.POST("/share/:token/signatures/draw", shareHandler.DrawSignature)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.PUT("/contracts/:id", contractHandler.Update)
		protected.PATCH("/contracts/:id/status", contractHandler.UpdateStatus)
		protected.DELETE("/contracts/:id", contractHandler.Delete)
		protected.POST("/contracts/:id/duplicate", contractHandler.Duplicate)

		protected.GET("/contracts/:id/fields", fieldHandler.List)
		protected.PUT("/contracts/:id/fields", fieldHandler.Replace)

		protected.POST("/contracts/:id/sign", signHandler.CommitOwnerSigning)
		protected.POST("/contracts/:id/share", signHandler.CreateShareLink)
		protected.GET("/contracts/:id/submissions", signHandler.ListSubmissions)

		protected.POST("/contracts/:id/export", exportHandler.Export)
		protected.GET("/contracts/:id/export/preview", exportHandler.Preview)

		protected.POST("/signatures/draw", signatureHandler.Draw)
		protected.POST("/signatures/upload", signatureHandler.Upload)
		protected.GET("/signatures", signatureHandler.List)
		protected.GET("/signatures/:id", signatureHandler.Get)
		protected.DELETE("/signatures/:id", signatureHandler.Delete)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers for the browser clients, including
// counterparties arriving through share links.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
