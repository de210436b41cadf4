package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/refresh"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch a project from the platform into the database",
	Long:  "Fetch the project's environments, services and deployments once and replace the stored snapshot.",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	id := projectID(cfg)
	if id == "" {
		return errors.New("no project selected, pass --project or set project_id in the config file")
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	project, err := refresh.NewSyncer(client, database, id, nil).Sync(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Synced %s: %d environments, %d services, %d deployments\n",
		project.Name, len(project.Environments), len(project.Services), len(project.Deployments))
	return nil
}
