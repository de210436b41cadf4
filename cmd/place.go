package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chris/railtl/internal/timeline"
)

var (
	placeService string
	placeEnv     string
	placeZoom    string
	placeStart   string
	placeEnd     string
	placeTZ      string
	placeWidth   int
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Print deployment bar placements for a service",
	Long: `Print where each deployment of a service lands on the timeline for a range,
as an offset and width in percent of the range, followed by a text bar.

Deployments that have not stopped run until now.`,
	RunE: runPlace,
}

func init() {
	rootCmd.AddCommand(placeCmd)
	placeCmd.Flags().StringVarP(&placeService, "service", "s", "", "Service id or name (required)")
	placeCmd.Flags().StringVarP(&placeEnv, "env", "e", "", "Environment id or name (default: config environment or the first one)")
	placeCmd.Flags().StringVarP(&placeZoom, "zoom", "z", "", "Zoom level (minute, 5m, 15m, hour, day, week, month)")
	placeCmd.Flags().StringVar(&placeStart, "start", "today", "Range start (today, now, RFC 3339, YYYY-MM-DD or 'YYYY-MM-DD HH:MM')")
	placeCmd.Flags().StringVar(&placeEnd, "end", "", "Range end (default: start plus one window)")
	placeCmd.Flags().StringVar(&placeTZ, "tz", "", "IANA timezone (default: config timezone or local)")
	placeCmd.Flags().IntVarP(&placeWidth, "width", "w", 60, "Bar width in characters")
}

func runPlace(cmd *cobra.Command, args []string) error {
	defer resetPlaceFlags(cmd)
	cmd.SilenceUsage = true

	if placeService == "" {
		return errors.New("--service is required")
	}
	if placeWidth < 1 {
		return errors.New("--width must be positive")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	zoom, loc, err := zoomAndLocation(cfg, placeZoom, placeTZ)
	if err != nil {
		return err
	}
	rng, err := windowRange(placeStart, placeEnd, zoom, loc)
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
	envPref := placeEnv
	if envPref == "" {
		envPref = cfg.Environment
	}
	env, err := resolveEnvironment(project.Environments, envPref)
	if err != nil {
		return err
	}
	svc, err := resolveService(project.Services, placeService)
	if err != nil {
		return err
	}

	deployments, err := database.GetDeploymentsInRange(svc.ID, env.ID, rng.Start, rng.End)
	if err != nil {
		return fmt.Errorf("failed to query deployments: %w", err)
	}

	now := nowFunc()
	deployments = timeline.Visible(deployments, rng, now)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s / %s  %s - %s  zoom %s\n", svc.Name, env.Name,
		rng.Start.Format("2006-01-02 15:04"), rng.End.Format("2006-01-02 15:04"), zoom)

	if len(deployments) == 0 {
		fmt.Fprintln(out, "No deployments in range")
		return nil
	}

	total := rng.Minutes()
	for _, d := range deployments {
		p, err := timeline.PlaceEvent(d, rng.Start, total, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-12s %-10s offset %6.2f%%  width %6.2f%%  %s\n",
			d.ID, d.Status, p.OffsetPercent, p.WidthPercent, textBar(p, placeWidth))
	}

	if pct, ok := timeline.NowIndicator(rng, now); ok {
		fmt.Fprintf(out, "now at %.2f%%\n", pct)
	}
	return nil
}

// textBar draws a placement as "[···███····]"
func textBar(p timeline.Placement, width int) string {
	from, to := p.Cells(width)
	return "[" + strings.Repeat("·", from) + strings.Repeat("█", to-from) + strings.Repeat("·", width-to) + "]"
}

// resetPlaceFlags resets all place flags to their default values (for testing)
func resetPlaceFlags(cmd *cobra.Command) {
	placeService = ""
	placeEnv = ""
	placeZoom = ""
	placeStart = "today"
	placeEnd = ""
	placeTZ = ""
	placeWidth = 60

	cmd.Flags().Visit(func(f *pflag.Flag) {
		f.Changed = false
	})
}
