package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/aptitude-portal/timing-analytics-service/internal/cache"
	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/config"
	"github.com/aptitude-portal/timing-analytics-service/internal/events"
	"github.com/aptitude-portal/timing-analytics-service/internal/handlers"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories/postgres"
	"github.com/aptitude-portal/timing-analytics-service/internal/services"
	"github.com/aptitude-portal/timing-analytics-service/internal/utils"
	"github.com/aptitude-portal/timing-analytics-service/internal/validator"
	"github.com/aptitude-portal/timing-analytics-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Response{},
	); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Redis is optional; without it the analysis facade recomputes
	// every bundle from the ledger.
	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without report cache", "error", err)
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, slogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		logger.Warn("Event publisher unavailable, using mock publisher", "error", err)
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer publisher.Close()

	cls, err := classifier.New(cfg.Thresholds())
	if err != nil {
		logger.Error("Invalid classifier thresholds", "error", err)
		os.Exit(1)
	}

	repo := postgres.NewRepository(db)

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:           repo,
		Classifier:     cls,
		Validator:      validator.New(),
		Publisher:      publisher,
		Cache:          cacheService,
		Logger:         slogger,
		StorageTimeout: cfg.StorageTimeout,
		CacheTTL:       cfg.CacheTTL,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(serviceManager, logger)
	handlerManager.SetupRoutes(router)

	logger.Info("Starting timing analytics service",
		"port", cfg.Port,
		"environment", cfg.Environment)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
