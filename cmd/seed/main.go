package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/threadline/configurator-backend/config"
	"github.com/threadline/configurator-backend/internal/db"
	"github.com/threadline/configurator-backend/pkg/logger"
	"gorm.io/gorm"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the configurator database",
	Long: `Seed the configurator database with the built-in tool catalog, catalog
documents from a spreadsheet, or an admin account.

Examples:
  seed defaults                          # Built-in tools and catalog
  seed import catalog.xlsx               # Catalog documents, one sheet per model
  seed import patterns.xlsx --tool pattern
  seed admin --email ops@example.com --password secret --name Ops`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		logger.Initialize(logger.Config{Level: level, Format: "console", EnableColor: true})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withDatabase connects, migrates and hands the database to fn.
func withDatabase(ctx context.Context, fn func(database *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := database.AutoMigrate(db.Models()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return fn(database)
}
