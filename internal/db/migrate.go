package db

import (
	"github.com/threadline/configurator-backend/internal/app/model"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	models := []interface{}{
		&model.User{},
		&model.Tool{},
		&model.RelatedModel{},
		&model.Product{},
		&model.ProductTool{},
		&model.ConfigEntry{},
	}
	return append(models, model.CatalogModels()...)
}

// Migrate runs database migrations and seeds the built-in tool catalog
// when it is empty.
func Migrate(database *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := database.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if _, err := SeedCatalog(database, false); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
