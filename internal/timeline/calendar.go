package timeline

import "time"

// DayStart returns the first instant of a calendar date in loc. On dates
// where the clock skips midnight that is the end of the gap (01:00 in
// zones that spring forward at midnight). Out-of-range days normalize the
// way time.Date does.
func DayStart(year int, month time.Month, day int, loc *time.Location) time.Time {
	return resolveWall(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), loc)
}

// StartOfDay returns the first instant of t's calendar date in t's location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return DayStart(year, month, day, t.Location())
}

// IsDayStart reports whether t is the first instant of its calendar date.
func IsDayStart(t time.Time) bool {
	return t.Equal(StartOfDay(t))
}

// wallClock returns t's wall-clock reading as a UTC value, so calendar
// arithmetic on it never meets a zone transition.
func wallClock(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	return time.Date(year, month, day, hour, minute, sec, t.Nanosecond(), time.UTC)
}

// resolveWall maps a wall-clock reading (held in UTC) to an instant in loc.
// A reading inside a spring-forward gap moves forward by the gap's length.
func resolveWall(wall time.Time, loc *time.Location) time.Time {
	year, month, day := wall.Date()
	hour, minute, sec := wall.Clock()
	t := time.Date(year, month, day, hour, minute, sec, wall.Nanosecond(), loc)

	got := wallClock(t)
	if !got.Before(wall) {
		// exact, or already pushed past the gap
		return t
	}
	_, end := t.ZoneBounds()
	if end.IsZero() {
		return t
	}
	_, before := t.Zone()
	_, after := end.Zone()
	if gap := time.Duration(after-before) * time.Second; gap > 0 {
		return t.Add(gap)
	}
	return t
}

// addCalendarDays shifts t by n calendar days. Day starts map to day
// starts; any other instant keeps its wall-clock reading.
func addCalendarDays(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}
	if IsDayStart(t) {
		year, month, day := t.Date()
		return DayStart(year, month, day+n, t.Location())
	}
	return resolveWall(wallClock(t).AddDate(0, 0, n), t.Location())
}
