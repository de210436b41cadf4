package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/railway"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a project snapshot from a JSON file",
	Long: `Load a project snapshot saved from the platform API into the database.

The file may hold the full project query response ({"data":{"project":...}})
or the bare project object. Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	project, err := railway.DecodeProject(raw)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SaveProject(project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s): %d environments, %d services, %d deployments\n",
		project.Name, project.ID, len(project.Environments), len(project.Services), len(project.Deployments))
	return nil
}
