package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/controller"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/repository"
	"github.com/infratech-maker/apclo-partner-crm/internal/app/service"
	"github.com/infratech-maker/apclo-partner-crm/internal/db"
	"github.com/infratech-maker/apclo-partner-crm/internal/enrich"
	"github.com/infratech-maker/apclo-partner-crm/internal/middleware"
	"github.com/infratech-maker/apclo-partner-crm/internal/router"
	"github.com/infratech-maker/apclo-partner-crm/internal/scheduler"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/infratech-maker/apclo-partner-crm/pkg/redis"
	"github.com/infratech-maker/apclo-partner-crm/pkg/slack"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting APCLO Partner CRM Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional. Without it the enrichment progress API returns "not running".
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Failed to connect to Redis, progress snapshots disabled", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer redis.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	storeRepo := repository.NewStoreRepository(db.GetDB())
	statusRepo := repository.NewStatusRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	storeService := service.NewStoreService(storeRepo)
	userService := service.NewUserService(userRepo)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	metaController := controller.NewMetaController(storeService)
	storeController := controller.NewStoreController(storeService)
	exportController := controller.NewExportController(storeService)
	userController := controller.NewUserController(userService)
	statusController := controller.NewStatusController(statusRepo)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Nightly enrichment: one bounded round per night
	nightlyCfg := cfg.Enrich
	nightlyCfg.MaxRounds = 1
	notifier := slack.NewClient(cfg.Slack.WebhookURL, "apclo-partner-crm")
	enrichScheduler := scheduler.NewEnrichScheduler(enrich.NewEnricher(storeRepo, notifier, nightlyCfg))
	if err := enrichScheduler.Start(); err != nil {
		logger.Error("Failed to start enrichment scheduler", err)
	}
	defer enrichScheduler.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		metaController,
		storeController,
		exportController,
		userController,
		statusController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
