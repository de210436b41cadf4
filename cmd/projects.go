package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris/railtl/pkg/models"
)

var projectsLocal bool

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Long:  "List the projects visible to the API token across all workspaces. With --local, list the projects stored in the database instead.",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.Flags().BoolVar(&projectsLocal, "local", false, "List projects from the database without calling the API")
}

func runProjects(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if projectsLocal {
		database, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		projects, err := database.ListProjects()
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if len(projects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No projects stored")
			return nil
		}
		return writeProjects(cmd.OutOrStdout(), projects)
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	user, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n\n", user.Name)
	if len(user.Projects) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No projects")
		return nil
	}
	return writeProjects(cmd.OutOrStdout(), user.Projects)
}

func writeProjects(w io.Writer, projects []models.Project) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, p := range projects {
		name := p.Name
		if p.DeletedAt != nil {
			name += " (deleted)"
		}
		created := "-"
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, name, created)
	}
	return tw.Flush()
}
