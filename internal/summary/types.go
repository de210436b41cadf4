package summary

import (
	"strconv"
	"time"
)

// ServiceSummary aggregates one service's deployments in one environment
// over a window
type ServiceSummary struct {
	Service      string
	Environment  string
	Deployments  int
	Failed       int
	LatestStatus string
	FirstTime    time.Time // earliest deployment start, clamped to the window
	LastTime     time.Time // latest deployment end (or now), clamped to the window
	Active       time.Duration
}

// FormatDuration returns the active time as "8h 12m", "45m", "30s" or "0s"
func (s *ServiceSummary) FormatDuration() string {
	return FormatDuration(s.Active)
}

// FormatDuration renders a duration the way the summary table shows it
func FormatDuration(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0s"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		if minutes > 0 {
			return formatWithSuffix(hours, "h") + " " + formatWithSuffix(minutes, "m")
		}
		return formatWithSuffix(hours, "h")
	}
	if minutes > 0 {
		return formatWithSuffix(minutes, "m")
	}
	return formatWithSuffix(seconds%60, "s")
}

func formatWithSuffix(value int64, suffix string) string {
	return strconv.FormatInt(value, 10) + suffix
}

// FormatTimeSpan returns the time range as "HH:MM - HH:MM" in loc
func (s *ServiceSummary) FormatTimeSpan(loc *time.Location) string {
	if s.FirstTime.IsZero() {
		return "-"
	}
	return s.FirstTime.In(loc).Format("15:04") + " - " + s.LastTime.In(loc).Format("15:04")
}

// StatusDisplay returns the latest status or "-" when there is none
func (s *ServiceSummary) StatusDisplay() string {
	if s.LatestStatus == "" {
		return "-"
	}
	return s.LatestStatus
}
