package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chris/railtl/internal/summary"
	"github.com/chris/railtl/internal/timeline"
)

var (
	summaryDate  string
	summaryTZ    string
	summaryColor string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a summary of deployment activity",
	Long:  "Display per-service deployment counts, failures and active time for one day, grouped by environment",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	summaryCmd.Flags().StringVar(&summaryDate, "date", "today", "Date to summarize (yesterday, today, or YYYY-MM-DD)")
	summaryCmd.Flags().StringVar(&summaryTZ, "tz", "", "IANA timezone for the day boundaries (default: config timezone or local)")
	summaryCmd.Flags().StringVar(&summaryColor, "color", "auto", "Color output (auto, always, never)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	loc, err := commandLocation(summaryTZ, cfg.Timezone)
	if err != nil {
		return err
	}

	rng, dateStr, err := parseDateRange(summaryDate, loc)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
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

	summaries := summary.GroupByService(project, rng, nowFunc())

	var noColor bool
	switch strings.ToLower(summaryColor) {
	case "always":
		// Force color output when piped (e.g. into less -R)
		lipgloss.SetColorProfile(termenv.TrueColor)
	case "never":
		noColor = true
	case "auto", "":
		noColor = !isTerminal(cmd.OutOrStdout())
	default:
		return fmt.Errorf("--color must be auto, always or never")
	}

	output := summary.FormatSummary(summaries, summary.FormatOptions{
		Project:  project.Name,
		Date:     dateStr,
		Location: loc,
		NoColor:  noColor,
	})
	fmt.Fprint(cmd.OutOrStdout(), output)

	return nil
}

// commandLocation prefers a --tz flag over the configured timezone
func commandLocation(flag, configured string) (*time.Location, error) {
	if flag != "" {
		return parseLocation(flag)
	}
	return parseLocation(configured)
}

// parseDateRange parses a date string into the calendar day it names in loc
// Supports: "yesterday", "today", "YYYY-MM-DD"
func parseDateRange(dateStr string, loc *time.Location) (timeline.Range, string, error) {
	now := nowFunc().In(loc)
	year, month, day := now.Date()

	switch strings.ToLower(dateStr) {
	case "yesterday":
		day--
	case "today":
	default:
		// parsed as a plain date so a skipped midnight cannot shift it
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return timeline.Range{}, "", fmt.Errorf("date must be 'yesterday', 'today', or YYYY-MM-DD format")
		}
		year, month, day = parsed.Date()
	}

	startOfDay := timeline.DayStart(year, month, day, loc)
	rng, err := timeline.NewRange(startOfDay, timeline.DayStart(year, month, day+1, loc))
	if err != nil {
		return timeline.Range{}, "", err
	}
	return rng, startOfDay.Format("2006-01-02"), nil
}

// isTerminal returns true if the writer is a terminal
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
