package timeline

import (
	"fmt"
	"time"
)

// Range is a visible time window. Start is always before End.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange validates start < end.
func NewRange(start, end time.Time) (Range, error) {
	if !start.Before(end) {
		return Range{}, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Range{Start: start, End: end}, nil
}

// Minutes returns the whole minutes between Start and End.
func (r Range) Minutes() int {
	return DifferenceInMinutes(r.End, r.Start)
}

// Contains reports whether t lies strictly inside the range.
func (r Range) Contains(t time.Time) bool {
	return t.After(r.Start) && t.Before(r.End)
}

// DifferenceInMinutes returns the number of whole minutes from b to a,
// truncated toward zero.
func DifferenceInMinutes(a, b time.Time) int {
	return int(a.Sub(b) / time.Minute)
}

// ComputeColumns returns the column boundaries for a range at a zoom level.
//
// Levels up to Hour step by IntervalMinutes minutes, Day steps by one hour
// and Week/Month step by one calendar day. The first boundary is start
// rounded up to the step unit and the last is the first boundary at or
// after end.
func ComputeColumns(start, end time.Time, zoom ZoomLevel) ([]time.Time, error) {
	if _, err := NewRange(start, end); err != nil {
		return nil, err
	}
	minutes, err := IntervalMinutes(zoom)
	if err != nil {
		return nil, err
	}

	var first time.Time
	var next func(time.Time) time.Time

	switch {
	case zoom.minuteTicks():
		first = ceilMinute(start)
		step := time.Duration(minutes) * time.Minute
		next = func(t time.Time) time.Time { return t.Add(step) }
	case zoom == Day:
		first = ceilHour(start)
		next = func(t time.Time) time.Time { return t.Add(time.Hour) }
	default:
		first = ceilDay(start)
		next = func(t time.Time) time.Time { return addCalendarDays(t, 1) }
	}

	columns := []time.Time{first}
	for last := first; last.Before(end); {
		last = next(last)
		columns = append(columns, last)
	}
	return columns, nil
}

func ceilMinute(t time.Time) time.Time {
	floor := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	if floor.Before(t) {
		return floor.Add(time.Minute)
	}
	return floor
}

func ceilHour(t time.Time) time.Time {
	floor := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if floor.Before(t) {
		return floor.Add(time.Hour)
	}
	return floor
}

func ceilDay(t time.Time) time.Time {
	floor := StartOfDay(t)
	if floor.Before(t) {
		return addCalendarDays(floor, 1)
	}
	return floor
}
