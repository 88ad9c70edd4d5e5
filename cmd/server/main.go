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

	"flashoffers/internal/config"
	"flashoffers/internal/events"
	"flashoffers/internal/handlers"
	"flashoffers/internal/middleware"
	"flashoffers/internal/repositories/mongodb"
	"flashoffers/internal/services"
	"flashoffers/pkg/cache"
	"flashoffers/pkg/database"
	"flashoffers/pkg/logger"
	"flashoffers/pkg/push"
	"flashoffers/pkg/websocket"
	"flashoffers/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	if err := database.NewMigrator(db.Database).Up(); err != nil {
		appLogger.WithError(err).Fatal("Failed to run migrations")
	}

	// Redis
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Domain event bus
	bus := events.NewBus()
	defer bus.Close()

	// Repositories
	offerRepo := mongodb.NewOfferRepository(db.Database, redisCache)
	claimRepo := mongodb.NewClaimRepository(db.Database)
	venueRepo := mongodb.NewVenueRepository(db.Database)

	// Push provider (optional)
	var pushProvider push.PushProvider
	if cfg.Push.Enabled {
		switch cfg.Push.Provider {
		case "apns":
			pushProvider, err = push.NewAPNSProvider(
				cfg.Push.APNSKeyFile, cfg.Push.APNSKeyID, cfg.Push.APNSTeamID,
				cfg.Push.APNSTopic, cfg.Push.APNSProduction)
		default:
			pushProvider, err = push.NewFCMProvider(cfg.Push.FCMCredentialsFile)
		}
		if err != nil {
			appLogger.WithError(err).Warn("Push provider unavailable, notifications disabled")
			pushProvider = nil
		}
	}

	// Services
	tokenGen := services.NewTokenGenerator(claimRepo, cfg.Offers.MaxTokenAttempts, appLogger)
	rateLimiter := services.NewRateLimitService(redisCache, venueRepo, cfg.Offers, appLogger)
	notifier := services.NewNotificationService(pushProvider, cfg.Push, appLogger)
	claimService := services.NewClaimService(db, offerRepo, claimRepo, tokenGen, bus, cfg.Offers, appLogger)
	redemptionService := services.NewRedemptionService(claimRepo, offerRepo, bus, appLogger)
	offerService := services.NewOfferService(offerRepo, venueRepo, rateLimiter, notifier, bus, appLogger)
	sweeper := services.NewSweepService(offerRepo, claimRepo, bus, cfg.Offers.SweepInterval, appLogger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweeper.Start(sweepCtx)

	// Handlers
	offerHandler := handlers.NewOfferHandler(offerService)
	claimHandler := handlers.NewClaimHandler(claimService)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService)

	wsHandler := websocket.NewHandler(bus)
	defer wsHandler.Close()

	// Router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupOfferRoutes(v1, offerHandler, cfg.Security.JWTSecret)
		routes.SetupClaimRoutes(v1, claimHandler, cfg.Security.JWTSecret)
		routes.SetupRedemptionRoutes(v1, redemptionHandler, cfg.Security.JWTSecret)
	}

	router.GET("/ws", middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("port", cfg.App.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
}
