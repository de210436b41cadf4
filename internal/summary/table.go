package summary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chris/railtl/pkg/models"
)

// FormatTable formats service summaries as an aligned table, sorted by
// environment then active time
func FormatTable(summaries []ServiceSummary, opts FormatOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	sortSummaries(summaries)
	widths := calculateColumnWidths(summaries, loc)

	var sb strings.Builder
	sb.WriteString(formatColumnHeaders(widths))
	sb.WriteString("\n")
	for _, s := range summaries {
		sb.WriteString(formatTableRow(s, widths, loc, opts.NoColor))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatColumnHeaders(widths columnWidths) string {
	return fmt.Sprintf("%-*s  %-*s  %*s  %*s  %-*s  %-*s  %s",
		widths.environment, "Environment",
		widths.service, "Service",
		widths.deploys, "Deploys",
		widths.failed, "Failed",
		widths.timeSpan, "Time Span",
		widths.active, "Active",
		"Status")
}

func formatTableRow(s ServiceSummary, widths columnWidths, loc *time.Location, noColor bool) string {
	env := fmt.Sprintf("%-*s", widths.environment, s.Environment)
	status := s.StatusDisplay()

	return fmt.Sprintf("%s  %-*s  %*d  %*d  %-*s  %-*s  %s",
		renderStyle(envStyle, env, noColor),
		widths.service, s.Service,
		widths.deploys, s.Deployments,
		widths.failed, s.Failed,
		widths.timeSpan, s.FormatTimeSpan(loc),
		widths.active, s.FormatDuration(),
		renderStyle(classStyles[models.ClassifyStatus(s.LatestStatus)], status, noColor))
}

type columnWidths struct {
	environment int
	service     int
	deploys     int
	failed      int
	timeSpan    int
	active      int
}

func calculateColumnWidths(summaries []ServiceSummary, loc *time.Location) columnWidths {
	widths := columnWidths{
		environment: len("Environment"),
		service:     len("Service"),
		deploys:     len("Deploys"),
		failed:      len("Failed"),
		timeSpan:    len("Time Span"),
		active:      len("Active"),
	}

	for _, s := range summaries {
		widths.environment = max(widths.environment, len(s.Environment))
		widths.service = max(widths.service, len(s.Service))
		widths.deploys = max(widths.deploys, len(strconv.Itoa(s.Deployments)))
		widths.failed = max(widths.failed, len(strconv.Itoa(s.Failed)))
		widths.timeSpan = max(widths.timeSpan, len(s.FormatTimeSpan(loc)))
		widths.active = max(widths.active, len(s.FormatDuration()))
	}

	return widths
}

func sortSummaries(summaries []ServiceSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		// Primary sort: environment (ascending)
		if summaries[i].Environment != summaries[j].Environment {
			return summaries[i].Environment < summaries[j].Environment
		}

		// Secondary sort: active time (descending)
		if summaries[i].Active != summaries[j].Active {
			return summaries[i].Active > summaries[j].Active
		}

		// Final sort: service (ascending)
		return summaries[i].Service < summaries[j].Service
	})
}
