package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/chris/railtl/pkg/models"
)

// Styles for summary output
var (
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true) // bright-magenta
	envStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // bright-blue
	statLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // bright-blue
	statValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // bright-green
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))             // bright-black
)

var classStyles = map[models.StatusClass]lipgloss.Style{
	models.ClassPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	models.ClassSuccess:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	models.ClassSleeping: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
	models.ClassFailed:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	models.ClassInactive: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
}

// FormatOptions contains options for formatting the summary
type FormatOptions struct {
	Project  string
	Date     string // Date being summarized (YYYY-MM-DD format)
	Location *time.Location
	NoColor  bool // Disable color output
}

// Helper function to render with or without colors
func renderStyle(style lipgloss.Style, text string, noColor bool) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

// FormatSummary renders the per-service table under a title line
func FormatSummary(summaries []ServiceSummary, opts FormatOptions) string {
	var output strings.Builder

	title := fmt.Sprintf("Deployment Summary - %s", opts.Date)
	if opts.Project != "" {
		title = fmt.Sprintf("%s - %s", opts.Project, title)
	}
	separator := renderStyle(separatorStyle, strings.Repeat("=", max(40-(ansi.StringWidth(title)/2), 0)), opts.NoColor)
	fmt.Fprintf(&output, "\n%s %s %s\n\n", separator, renderStyle(headerStyle, title, opts.NoColor), separator)

	if len(summaries) == 0 {
		output.WriteString(renderStyle(statLabelStyle, fmt.Sprintf("No deployments found for %s", opts.Date), opts.NoColor) + "\n")
		return output.String()
	}

	output.WriteString(FormatTable(summaries, opts))
	output.WriteString("\n")
	output.WriteString(formatSummaryStats(summaries, opts.NoColor))
	output.WriteString("\n")
	return output.String()
}

func formatSummaryStats(summaries []ServiceSummary, noColor bool) string {
	deployments, failed := 0, 0
	for _, s := range summaries {
		deployments += s.Deployments
		failed += s.Failed
	}

	plural := ""
	if len(summaries) != 1 {
		plural = "s"
	}

	return fmt.Sprintf("%s %s deployments (%s failed) across %d service%s",
		renderStyle(statLabelStyle, "Total:", noColor),
		renderStyle(statValueStyle, fmt.Sprint(deployments), noColor),
		renderStyle(statValueStyle, fmt.Sprint(failed), noColor),
		len(summaries), plural)
}
