package db

import (
	"context"
	"fmt"
	"time"

	"github.com/threadline/configurator-backend/config"
	appLogger "github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database, retrying with a Fibonacci backoff up to
// cfg.ConnectMaxAttempts times. Only startup retries; requests fail fast.
func Connect(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	return connectWithRetry(ctx, cfg, func() (*gorm.DB, error) {
		return open(cfg)
	}, time.Second)
}

type openFunc func() (*gorm.DB, error)

func connectWithRetry(ctx context.Context, cfg *config.DatabaseConfig, openDB openFunc, unit time.Duration) (*gorm.DB, error) {
	maxAttempts := cfg.ConnectMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	appLogger.Info("Connecting to database", map[string]interface{}{
		"host":         cfg.Host,
		"port":         cfg.Port,
		"database":     cfg.DBName,
		"user":         cfg.User,
		"max_attempts": maxAttempts,
	})

	var lastErr error
	a, b := 1, 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		database, err := openDB()
		if err == nil {
			return database, nil
		}
		lastErr = err
		appLogger.Warn("Database connection attempt failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})

		if attempt == maxAttempts {
			break
		}

		wait := time.Duration(a) * unit
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connect cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}
		a, b = b, a+b
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxAttempts, lastErr)
}

func open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // Use silent mode, we'll use our own logger
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	appLogger.Info("Database connection established successfully", map[string]interface{}{
		"max_idle_conns": cfg.MaxIdleConns,
		"max_open_conns": cfg.MaxOpenConns,
	})
	return database, nil
}

// Close closes the database connection pool
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
