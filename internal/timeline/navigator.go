package timeline

import (
	"time"
)

// DefaultZoom is the zoom level a new Navigator starts at.
const DefaultZoom = QuarterHour

// Navigator holds the visible range of the timeline. The range is fully
// described by its start and zoom level; the end is always start plus the
// zoom level's window.
//
// Day-sized windows move by calendar days on the wall-clock reading of the
// start, so MoveLeft undoes MoveRight for any start, even across a zone
// transition.
//
// A Navigator is not safe for concurrent use. It is driven from a single
// event loop.
type Navigator struct {
	start time.Time
	// wall is the wall-clock reading start was resolved from, held in UTC
	wall  time.Time
	zoom  ZoomLevel
	loc   *time.Location
	now   func() time.Time
}

// NavigatorOption configures a Navigator
type NavigatorOption func(*Navigator)

// WithClock sets the function used to get the current time (for testing)
func WithClock(fn func() time.Time) NavigatorOption {
	return func(n *Navigator) {
		n.now = fn
	}
}

// WithLocation sets the zone that "today" is computed in.
func WithLocation(loc *time.Location) NavigatorOption {
	return func(n *Navigator) {
		n.loc = loc
	}
}

// WithZoom sets the initial zoom level. Invalid levels are ignored.
func WithZoom(z ZoomLevel) NavigatorOption {
	return func(n *Navigator) {
		if z.Valid() {
			n.zoom = z
		}
	}
}

// NewNavigator returns a Navigator showing today at DefaultZoom.
func NewNavigator(opts ...NavigatorOption) *Navigator {
	n := &Navigator{
		zoom: DefaultZoom,
		loc:  time.Local,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.setStart(n.today())
	return n
}

func (n *Navigator) setStart(t time.Time) {
	n.start, n.wall = t, wallAnchor(t)
}

// wallAnchor is the reading day-sized moves work from. A day start reads
// as midnight of its date even when the clock skipped midnight.
func wallAnchor(t time.Time) time.Time {
	if IsDayStart(t) {
		year, month, day := t.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
	return wallClock(t)
}

// shifted returns the start k windows away along with its wall reading.
func (n *Navigator) shifted(k int) (time.Time, time.Time) {
	w := n.window()
	if w.Days > 0 {
		wall := n.wall.AddDate(0, 0, k*w.Days)
		return resolveWall(wall, n.loc), wall
	}
	start := n.start.Add(time.Duration(k*w.Hours) * time.Hour)
	return start, wallAnchor(start)
}

func (n *Navigator) today() time.Time {
	return StartOfDay(n.now().In(n.loc))
}

// Start returns the left edge of the visible range.
func (n *Navigator) Start() time.Time {
	return n.start
}

// End returns the right edge of the visible range.
func (n *Navigator) End() time.Time {
	end, _ := n.shifted(1)
	return end
}

func (n *Navigator) Zoom() ZoomLevel {
	return n.zoom
}

// Range returns the visible range as a fresh value.
func (n *Navigator) Range() Range {
	return Range{Start: n.Start(), End: n.End()}
}

// Now samples the navigator's clock.
func (n *Navigator) Now() time.Time {
	return n.now().In(n.loc)
}

func (n *Navigator) window() Window {
	// zoom is validated on every write, so the lookup cannot fail.
	w, _ := WindowFor(n.zoom)
	return w
}

// SetZoomLevel changes the zoom level and keeps the left edge fixed.
func (n *Navigator) SetZoomLevel(z ZoomLevel) error {
	if _, err := WindowFor(z); err != nil {
		return err
	}
	n.zoom = z
	return nil
}

// ZoomIn moves one level finer. It reports false at Minute.
func (n *Navigator) ZoomIn() bool {
	z, ok := n.zoom.Finer()
	if !ok {
		return false
	}
	n.zoom = z
	return true
}

// ZoomOut moves one level coarser. It reports false at Month.
func (n *Navigator) ZoomOut() bool {
	z, ok := n.zoom.Coarser()
	if !ok {
		return false
	}
	n.zoom = z
	return true
}

// MoveLeft shifts the range back by one window.
func (n *Navigator) MoveLeft() {
	n.start, n.wall = n.shifted(-1)
}

// MoveRight moves the range so it starts where the current one ends.
func (n *Navigator) MoveRight() {
	n.start, n.wall = n.shifted(1)
}

// ResetToToday moves the range to start at the beginning of today, keeping the zoom.
func (n *Navigator) ResetToToday() {
	n.setStart(n.today())
}

// ZoomToTime zooms one level finer around t. The new range starts a fixed
// lookback before t so that t lands near the middle of the narrower window.
// It is a no-op at the finest level and reports whether anything changed.
func (n *Navigator) ZoomToTime(t time.Time) bool {
	z, ok := n.zoom.Finer()
	if !ok {
		return false
	}
	n.zoom = z
	n.setStart(t.In(n.loc).Add(-lookbackFor(z)))
	return true
}
