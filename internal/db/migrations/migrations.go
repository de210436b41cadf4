package migrations

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed 001_initial_schema.sql
var initialSchemaSQL string

//go:embed 002_deployment_instances.sql
var deploymentInstancesSQL string

// All contains all migrations in order. Each migration's index+1 is its version number.
var All = []string{
	initialSchemaSQL,       // version 1
	deploymentInstancesSQL, // version 2
}

// Migrate brings the schema up to Latest(). The applied version lives in
// PRAGMA user_version; each pending migration runs in its own transaction
// and a failure rolls that migration back and stops.
func Migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(All); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(All[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to set schema version to %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Latest returns the schema version after all migrations are applied
func Latest() int {
	return len(All)
}
