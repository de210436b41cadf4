package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	applog "github.com/chris/railtl/internal/log"
	"github.com/chris/railtl/internal/refresh"
	"github.com/chris/railtl/internal/tui"
)

var (
	tuiEnv  string
	tuiZoom string
	tuiTZ   string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive deployment timeline",
	Long: `Open the deployment timeline for a project.

With an API token configured the project is synced in the background on the
refresh schedule and services can be started and stopped. Without one the
stored snapshot is shown read-only.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCmd.Flags().StringVarP(&tuiEnv, "env", "e", "", "Environment id or name shown first (default: config environment)")
	tuiCmd.Flags().StringVarP(&tuiZoom, "zoom", "z", "", "Initial zoom level (default: default_zoom from config)")
	tuiCmd.Flags().StringVar(&tuiTZ, "tz", "", "IANA timezone (default: config timezone or local)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	zoom, loc, err := zoomAndLocation(cfg, tuiZoom, tuiTZ)
	if err != nil {
		return err
	}
	envPref := tuiEnv
	if envPref == "" {
		envPref = cfg.Environment
	}

	database, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	// Log lines would corrupt the alternate screen
	applog.Setup(cfg.LogLevel, io.Discard)

	opts := []tui.Option{
		tui.WithZoom(zoom),
		tui.WithLocation(loc),
		tui.WithEnvironment(envPref),
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	id := projectID(cfg)
	if id == "" {
		project, err := resolveProject(database, "")
		if err != nil {
			return err
		}
		id = project.ID
	}

	if cfg.APIToken() != "" {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		syncer := refresh.NewSyncer(client, database, id, nil)
		scheduler, err := refresh.NewScheduler(syncer, cfg.RefreshCron)
		if err != nil {
			return err
		}
		go func() { _ = scheduler.Start(ctx) }()
		// a scheduled save must not outlive the database
		defer func() {
			cancel()
			scheduler.Stop()
		}()

		opts = append(opts, tui.WithActions(client), tui.WithRefresher(syncer))
	}

	model := tui.New(database, id, opts...)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus(),
		tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
