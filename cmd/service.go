package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/db"
	"github.com/chris/railtl/internal/refresh"
	"github.com/chris/railtl/internal/tui"
	"github.com/chris/railtl/pkg/models"
)

var serviceEnv string

var startCmd = &cobra.Command{
	Use:   "start <service>",
	Short: "Deploy a service",
	Long:  "Start a new deployment of the service in the selected environment.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServiceAction(cmd, args[0], true)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <service>",
	Short: "Stop a running service",
	Long:  "Remove the service's latest deployment in the selected environment. The service must be running.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServiceAction(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	for _, c := range []*cobra.Command{startCmd, stopCmd} {
		c.Flags().StringVarP(&serviceEnv, "env", "e", "", "Environment id or name (default: config environment or the first one)")
	}
}

// runServiceAction resolves the service from the stored snapshot, calls the
// API and re-syncs so the database reflects the change
func runServiceAction(cmd *cobra.Command, ref string, start bool) error {
	defer func() { serviceEnv = "" }()
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
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

	project, err := resolveProject(database, projectID(cfg))
	if err != nil {
		return err
	}
	envPref := serviceEnv
	if envPref == "" {
		envPref = cfg.Environment
	}
	env, err := resolveEnvironment(project.Environments, envPref)
	if err != nil {
		return err
	}
	svc, err := resolveService(project.Services, ref)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var actions tui.Actions = client
	out := cmd.OutOrStdout()
	if start {
		if err := actions.DeployService(ctx, svc.ID, env.ID); err != nil {
			return fmt.Errorf("failed to start %s: %w", svc.Name, err)
		}
		fmt.Fprintf(out, "Deploying %s in %s\n", svc.Name, env.Name)
	} else {
		latest, err := stopTarget(database, svc, env)
		if err != nil {
			return err
		}
		if err := actions.RemoveDeployment(ctx, latest.ID); err != nil {
			return fmt.Errorf("failed to stop %s: %w", svc.Name, err)
		}
		fmt.Fprintf(out, "Stopped %s in %s (removed %s)\n", svc.Name, env.Name, latest.ID)
	}

	if _, err := refresh.NewSyncer(client, database, project.ID, nil).Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh after action failed")
	}
	return nil
}

type latestFinder interface {
	LatestDeployment(serviceID, environmentID string) (*models.Deployment, error)
}

// stopTarget returns the deployment that stopping svc removes. The service
// must have a running latest deployment.
func stopTarget(store latestFinder, svc models.Service, env models.Environment) (*models.Deployment, error) {
	latest, err := store.LatestDeployment(svc.ID, env.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%s is not running in %s", svc.Name, env.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest deployment: %w", err)
	}
	if !latest.IsRunning() {
		return nil, fmt.Errorf("%s is not running in %s", svc.Name, env.Name)
	}
	return latest, nil
}
