package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/threadline/configurator-backend/config"
	"github.com/threadline/configurator-backend/internal/app/controller"
	"github.com/threadline/configurator-backend/internal/app/repository"
	"github.com/threadline/configurator-backend/internal/app/service"
	"github.com/threadline/configurator-backend/internal/db"
	"github.com/threadline/configurator-backend/internal/middleware"
	"github.com/threadline/configurator-backend/internal/router"
	"github.com/threadline/configurator-backend/internal/scheduler"
	"github.com/threadline/configurator-backend/internal/storage"
	ws "github.com/threadline/configurator-backend/internal/websocket"
	"github.com/threadline/configurator-backend/pkg/logger"
	"github.com/threadline/configurator-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logger.Initialize(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		EnableColor: !cfg.Server.IsProduction(),
	})

	logger.Info("Starting configurator backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   cfg.Log.Level,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	database, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", err)
	}

	if err := db.Migrate(database); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is optional; without it previews are not cached and logout
	// cannot revoke tokens.
	var (
		redisClient  *goredis.Client
		previewCache service.PreviewCache
		blacklist    service.TokenBlacklist
		revocations  middleware.RevocationChecker
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.Connect(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", err)
		}
		tokenBlacklist := redis.NewTokenBlacklist(redisClient)
		previewCache = redis.NewPreviewCache(redisClient, cfg.Preview.CacheTTL)
		blacklist = tokenBlacklist
		revocations = tokenBlacklist
	} else {
		logger.Warn("Redis disabled: preview cache and token revocation are off", nil)
	}

	s3Storage, err := storage.NewS3Storage(ctx, &cfg.S3)
	if err != nil {
		logger.Fatal("Failed to initialize S3 storage", err)
	}

	// Live preview hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := ws.NewHub()
	hubDone := make(chan struct{})
	go func() {
		hub.Run(hubCtx)
		close(hubDone)
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepository(database)
	toolRepo := repository.NewToolRepository(database)
	catalogRepo := repository.NewCatalogRepository(database)
	productRepo := repository.NewProductRepository(database)
	bindingRepo := repository.NewProductToolRepository(database)

	// Initialize services
	var observers service.Observers
	if previewCache != nil {
		observers = append(observers, service.NewPreviewInvalidator(previewCache))
	}
	observers = append(observers, hub)

	resolver := service.NewConfigResolver(toolRepo, catalogRepo)
	reconciler := service.NewReconciler(toolRepo, bindingRepo, resolver)

	authService := service.NewAuthService(
		userRepo,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	toolService := service.NewToolService(toolRepo, catalogRepo, resolver)
	productService := service.NewProductService(database, productRepo, reconciler, observers)
	productToolService := service.NewProductToolService(productRepo, bindingRepo, observers)
	customizationService := service.NewCustomizationService(database, productRepo, bindingRepo, reconciler, previewCache, observers)

	// Initialize controllers
	r := router.NewRouter(
		controller.NewAuthController(authService),
		controller.NewToolController(toolService),
		controller.NewProductController(productService),
		controller.NewProductToolController(productToolService, customizationService),
		controller.NewCustomizationController(customizationService),
		controller.NewPreviewController(hub, cfg.CORS.AllowedOrigins),
		controller.NewUploadController(s3Storage),
		middleware.NewAuthMiddleware(cfg.JWT.Secret, revocations),
		cfg,
	)
	engine, err := r.Setup()
	if err != nil {
		logger.Fatal("Failed to set up router", err)
	}

	var sweeper *scheduler.OrphanSweeper
	if cfg.Scheduler.OrphanSweepSchedule != "" {
		sweeper = scheduler.NewOrphanSweeper(cfg.Scheduler.OrphanSweepSchedule, bindingRepo)
		if err := sweeper.Start(); err != nil {
			logger.Fatal("Failed to start orphan sweeper", err)
		}
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: engine,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("Server stopped unexpectedly", err)
	}

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", err)
	}

	if sweeper != nil {
		sweeper.Stop()
	}

	stopHub()
	<-hubDone

	if redisClient != nil {
		if err := redis.Close(redisClient); err != nil {
			logger.Error("Failed to close redis connection", err)
		}
	}

	if err := db.Close(database); err != nil {
		logger.Error("Failed to close database connection", err)
	}

	logger.Info("Server stopped successfully")
}
