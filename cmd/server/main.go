// Package main runs the Gowra event platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gowra/backend/config"
	"github.com/gowra/backend/internal/admin"
	"github.com/gowra/backend/internal/auth"
	"github.com/gowra/backend/internal/events"
	"github.com/gowra/backend/internal/middleware"
	"github.com/gowra/backend/internal/models"
	"github.com/gowra/backend/internal/payments"
	"github.com/gowra/backend/internal/registrations"
	"github.com/gowra/backend/pkg/database"
	"github.com/gowra/backend/pkg/queue"
	"github.com/gowra/backend/pkg/redis"
	"github.com/gowra/backend/pkg/response"
	"github.com/gowra/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.BannersBucket != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			BannersBucket:        cfg.AWS.BannersBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpireMinutes)
	refreshTTL := time.Duration(cfg.JWT.RefreshExpireDays) * 24 * time.Hour
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, authRepo, jwtService, refreshTTL, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	var banners events.BannerStorage
	if s3Client != nil {
		banners = s3Client
	}
	eventHandler := events.NewHandler(eventRepo, banners, logger)

	// Payments
	paymentRepo := payments.NewRepository(pool)
	paymentHandler := payments.NewHandler(paymentRepo)

	// Registrations
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, eventRepo, paymentRepo, jobQueue, logger)

	// Admin dashboard
	adminHandler := admin.NewHandler(pool, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public browsing and auth
	router.GET("/api/events", eventHandler.List)
	router.GET("/api/events/:id", eventHandler.GetByID)

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/auth/upgrade-to-organizer", authHandler.UpgradeToOrganizer)

		// Events (organizer-gated management; RequireOrganizer answers 403
		// with needsUpgrade for regular role claims)
		api.POST("/events", middleware.RequireOrganizer(), eventHandler.Create)
		api.GET("/events/mine", middleware.RequireOrganizer(), eventHandler.ListMine)
		api.PATCH("/events/:id", middleware.RequireOrganizer(), eventHandler.Update)
		api.DELETE("/events/:id", middleware.RequireOrganizer(), eventHandler.Delete)
		api.POST("/events/:id/banner-upload-url", middleware.RequireOrganizer(), eventHandler.BannerUploadURL)
		api.GET("/events/:id/registrations", middleware.RequireOrganizer(), registrationHandler.ListByEvent)

		// Tickets
		api.POST("/events/:id/register", registrationHandler.Register)
		api.GET("/registrations/mine", registrationHandler.ListMine)
		api.DELETE("/registrations/:id", registrationHandler.Cancel)

		// Payments
		api.GET("/payments/mine", paymentHandler.ListMine)

		// Admin dashboard
		api.GET("/admin/stats", middleware.RequireRole(models.RoleAdmin), adminHandler.Stats)
		api.GET("/admin/users", middleware.RequireRole(models.RoleAdmin), adminHandler.ListUsers)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
