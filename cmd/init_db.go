package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/db"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Initialize the database schema",
	Long:  "Creates the railtl database and initializes or upgrades the schema. Safe to run multiple times - will not overwrite existing data.",
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	path := dbPath
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.DBPath
	}

	// Open with SkipSchemaCheck, then call InitSchema to detect new vs existing
	database, err := db.NewWithOptions(path, db.Options{SkipSchemaCheck: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	created, err := database.InitSchema()
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Database initialized: %s\n", database.Path())
	}
	// Silent if already initialized

	return nil
}
