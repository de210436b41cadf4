package cmd

import (
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chris/railtl/internal/config"
	"github.com/chris/railtl/internal/timeline"
)

var (
	columnsZoom       string
	columnsStart      string
	columnsEnd        string
	columnsTZ         string
	columnsTimeFormat string
	columnsAll        bool
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Print the time axis columns for a range",
	Long: `Print the column boundaries and labels the timeline shows for a range.

The range starts at --start (default: start of today) and spans one window of
the zoom level unless --end is given. Only labeled columns are printed unless
--all is set.`,
	RunE: runColumns,
}

func init() {
	rootCmd.AddCommand(columnsCmd)
	columnsCmd.Flags().StringVarP(&columnsZoom, "zoom", "z", "", "Zoom level (minute, 5m, 15m, hour, day, week, month)")
	columnsCmd.Flags().StringVar(&columnsStart, "start", "today", "Range start (today, now, RFC 3339, YYYY-MM-DD or 'YYYY-MM-DD HH:MM')")
	columnsCmd.Flags().StringVar(&columnsEnd, "end", "", "Range end (default: start plus one window)")
	columnsCmd.Flags().StringVar(&columnsTZ, "tz", "", "IANA timezone (default: config timezone or local)")
	columnsCmd.Flags().StringVarP(&columnsTimeFormat, "time-format", "t", "", "strftime format for column times (default: %Y-%m-%d %H:%M)")
	columnsCmd.Flags().BoolVarP(&columnsAll, "all", "a", false, "Print unlabeled columns too")
}

func runColumns(cmd *cobra.Command, args []string) error {
	defer resetColumnsFlags(cmd)
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	zoom, loc, err := zoomAndLocation(cfg, columnsZoom, columnsTZ)
	if err != nil {
		return err
	}
	rng, err := windowRange(columnsStart, columnsEnd, zoom, loc)
	if err != nil {
		return err
	}

	cols, err := timeline.Intervals(rng.Start, rng.End, zoom)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s - %s  zoom %s  %d columns\n",
		formatColumnTime(rng.Start), formatColumnTime(rng.End), zoom, len(cols))
	for _, col := range cols {
		if !columnsAll && !col.Labeled() {
			continue
		}
		label := col.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(out, "%5d  %6.2f%%  %s  %s\n", col.Index, col.Position, formatColumnTime(col.Time), label)
	}
	return nil
}

func formatColumnTime(t time.Time) string {
	if columnsTimeFormat != "" {
		return strftime.Format(columnsTimeFormat, t)
	}
	return t.Format("2006-01-02 15:04")
}

// zoomAndLocation resolves zoom and timezone flags against the config
func zoomAndLocation(cfg *config.Config, zoomFlag, tzFlag string) (timeline.ZoomLevel, *time.Location, error) {
	zoom := cfg.Zoom()
	if zoomFlag != "" {
		z, err := timeline.ParseZoomLevel(zoomFlag)
		if err != nil {
			return 0, nil, err
		}
		zoom = z
	}
	loc, err := commandLocation(tzFlag, cfg.Timezone)
	if err != nil {
		return 0, nil, err
	}
	return zoom, loc, nil
}

// windowRange builds the range from --start and --end. Without an end the
// range is one window of zoom.
func windowRange(startArg, endArg string, zoom timeline.ZoomLevel, loc *time.Location) (timeline.Range, error) {
	start, err := parseStart(startArg, loc)
	if err != nil {
		return timeline.Range{}, err
	}
	var end time.Time
	if endArg != "" {
		end, err = parseStart(endArg, loc)
		if err != nil {
			return timeline.Range{}, fmt.Errorf("invalid end: %w", err)
		}
	} else {
		window, err := timeline.WindowFor(zoom)
		if err != nil {
			return timeline.Range{}, err
		}
		end = window.AddTo(start, 1)
	}
	return timeline.NewRange(start, end)
}

// resetColumnsFlags resets all columns flags to their default values (for testing)
func resetColumnsFlags(cmd *cobra.Command) {
	columnsZoom = ""
	columnsStart = "today"
	columnsEnd = ""
	columnsTZ = ""
	columnsTimeFormat = ""
	columnsAll = false

	// Clear the "changed" status for all flags so they don't appear as modified
	cmd.Flags().Visit(func(f *pflag.Flag) {
		f.Changed = false
	})
}
