package timeline

import (
	"fmt"
	"strings"
	"time"
)

// ZoomLevel is the discrete granularity of the timeline, ordered from
// finest (Minute) to coarsest (Month).
type ZoomLevel int

const (
	Minute ZoomLevel = iota + 1
	FiveMinutes
	QuarterHour
	Hour
	Day
	Week
	Month
)

// Finest and Coarsest bound the zoom scale.
const (
	Finest   = Minute
	Coarsest = Month
)

var zoomNames = map[ZoomLevel]string{
	Minute:      "minute",
	FiveMinutes: "5m",
	QuarterHour: "15m",
	Hour:        "hour",
	Day:         "day",
	Week:        "week",
	Month:       "month",
}

// Valid reports whether z is one of the seven zoom levels
func (z ZoomLevel) Valid() bool {
	return z >= Finest && z <= Coarsest
}

// Finer returns the next finer level. ok is false at Minute.
func (z ZoomLevel) Finer() (ZoomLevel, bool) {
	if !z.Valid() || z == Finest {
		return z, false
	}
	return z - 1, true
}

// Coarser returns the next coarser level. ok is false at Month.
func (z ZoomLevel) Coarser() (ZoomLevel, bool) {
	if !z.Valid() || z == Coarsest {
		return z, false
	}
	return z + 1, true
}

func (z ZoomLevel) FinerThan(other ZoomLevel) bool {
	return z < other
}

func (z ZoomLevel) CoarserThan(other ZoomLevel) bool {
	return z > other
}

// minuteTicks reports whether columns at this level step in minutes
// (everything up to and including Hour).
func (z ZoomLevel) minuteTicks() bool {
	return !z.CoarserThan(Hour)
}

func (z ZoomLevel) String() string {
	if name, ok := zoomNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZoomLevel(%d)", int(z))
}

// ParseZoomLevel parses a zoom level name as printed by String.
// A few spelled-out aliases are accepted for the sub-hour levels.
func ParseZoomLevel(s string) (ZoomLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "1m":
		return Minute, nil
	case "5m", "five-minutes", "fiveminutes":
		return FiveMinutes, nil
	case "15m", "quarter-hour", "quarterhour":
		return QuarterHour, nil
	case "hour", "1h":
		return Hour, nil
	case "day", "1d":
		return Day, nil
	case "week", "1w":
		return Week, nil
	case "month":
		return Month, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedZoomLevel, s)
}

// IntervalMinutes returns the nominal width of one column in minutes.
func IntervalMinutes(z ZoomLevel) (int, error) {
	switch z {
	case Minute:
		return 1, nil
	case FiveMinutes:
		return 5, nil
	case QuarterHour:
		return 15, nil
	case Hour:
		return 60, nil
	case Day:
		return 60 * 24, nil
	case Week:
		return 60 * 24 * 7, nil
	case Month:
		return 60 * 24 * 30, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnsupportedZoomLevel, int(z))
}

// Window is the span of the visible range at a zoom level. Days are
// calendar days: a window starting at a day start ends at a day start,
// including on dates where the clock skips midnight.
type Window struct {
	Hours int
	Days  int
}

// AddTo returns t shifted forward by n windows (backward when n < 0).
func (w Window) AddTo(t time.Time, n int) time.Time {
	return addCalendarDays(t, n*w.Days).Add(time.Duration(n*w.Hours) * time.Hour)
}

func (w Window) String() string {
	if w.Days > 0 {
		return fmt.Sprintf("%dd", w.Days)
	}
	return fmt.Sprintf("%dh", w.Hours)
}

// WindowFor returns the visible window size for a zoom level.
func WindowFor(z ZoomLevel) (Window, error) {
	switch z {
	case Minute:
		return Window{Hours: 1}, nil
	case FiveMinutes:
		return Window{Hours: 3}, nil
	case QuarterHour:
		return Window{Days: 1}, nil
	case Hour:
		return Window{Days: 2}, nil
	case Day:
		return Window{Days: 7}, nil
	case Week:
		return Window{Days: 14}, nil
	case Month:
		return Window{Days: 30}, nil
	}
	return Window{}, fmt.Errorf("%w: %d", ErrUnsupportedZoomLevel, int(z))
}

// lookbackFor is how far before a clicked instant the window starts after
// zooming into that level.
func lookbackFor(z ZoomLevel) time.Duration {
	switch z {
	case Minute:
		return 30 * time.Minute
	case FiveMinutes:
		return 60 * time.Minute
	case QuarterHour:
		return 12 * time.Hour
	case Hour:
		return 24 * time.Hour
	case Day:
		return 3 * 24 * time.Hour
	case Week:
		return 7 * 24 * time.Hour
	default:
		return 60 * time.Minute
	}
}
