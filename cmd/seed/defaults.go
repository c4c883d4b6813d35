package main

import (
	"github.com/spf13/cobra"
	"github.com/threadline/configurator-backend/internal/db"
	"gorm.io/gorm"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Insert the built-in tools and their catalog documents",
	Long: `Insert the built-in tools with their catalog documents. Tools that
already exist are left untouched, so the command can be re-run safely.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(database *gorm.DB) error {
			result, err := db.SeedCatalog(database, true)
			if err != nil {
				return err
			}
			cmd.Printf("Tools created: %d, skipped: %d, color swatches added: %d\n",
				result.ToolsCreated, result.ToolsSkipped, result.SwatchesAdded)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(defaultsCmd)
}
