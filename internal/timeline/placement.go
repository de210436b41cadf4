package timeline

import (
	"fmt"
	"math"
	"time"
)

// MinWidthPercent keeps zero-length and off-window bars visible as a thin
// marker.
const MinWidthPercent = 0.1

// TimedEvent is a record with a start and an optional end. Events without
// an end are still running.
type TimedEvent interface {
	EventID() string
	StartedAt() time.Time
	EndedAt() (time.Time, bool)
}

// EndOrNow returns the event's end, or now when it is still open.
func EndOrNow(ev TimedEvent, now time.Time) time.Time {
	if end, ok := ev.EndedAt(); ok {
		return end
	}
	return now
}

// Placement is the horizontal extent of an event bar, in percent of the
// visible range.
type Placement struct {
	OffsetPercent float64
	WidthPercent  float64
}

// Cells maps the placement onto a track of width cells and returns the
// half-open range it covers. Every bar covers at least one cell.
func (p Placement) Cells(width int) (from, to int) {
	if width <= 0 {
		return 0, 0
	}
	from = int(math.Floor(p.OffsetPercent / 100 * float64(width)))
	to = int(math.Round((p.OffsetPercent + p.WidthPercent) / 100 * float64(width)))
	from = min(max(from, 0), width-1)
	to = min(max(to, from+1), width)
	return from, to
}

// Place maps an event interval onto a visible range. The bar is clamped to
// the range edges and is never narrower than MinWidthPercent.
func Place(eventStart, eventEnd, rangeStart, rangeEnd time.Time) (Placement, error) {
	return placeMinutes(eventStart, eventEnd, rangeStart, DifferenceInMinutes(rangeEnd, rangeStart))
}

// PlaceEvent places ev against a range given by its start and total length
// in minutes. Open events end at now.
func PlaceEvent(ev TimedEvent, rangeStart time.Time, totalMinutes int, now time.Time) (Placement, error) {
	return placeMinutes(ev.StartedAt(), EndOrNow(ev, now), rangeStart, totalMinutes)
}

func placeMinutes(eventStart, eventEnd, rangeStart time.Time, totalMinutes int) (Placement, error) {
	if totalMinutes <= 0 {
		return Placement{}, fmt.Errorf("%w: range spans %d minutes", ErrInvalidRange, totalMinutes)
	}

	startMinutes := max(0, DifferenceInMinutes(eventStart, rangeStart))
	endMinutes := min(totalMinutes, DifferenceInMinutes(eventEnd, rangeStart))

	total := float64(totalMinutes)
	return Placement{
		OffsetPercent: float64(startMinutes) / total * 100,
		WidthPercent:  max(MinWidthPercent, float64(endMinutes-startMinutes)/total*100),
	}, nil
}

// NowIndicator returns where the current-time marker sits on the range.
// visible is false when now is outside the range.
func NowIndicator(rng Range, now time.Time) (percent float64, visible bool) {
	total := rng.Minutes()
	if total <= 0 || !rng.Contains(now) {
		return 0, false
	}
	return float64(DifferenceInMinutes(now, rng.Start)) / float64(total) * 100, true
}

// Visible returns the events that overlap the range, preserving order.
// Open events are treated as running until now.
func Visible[E TimedEvent](events []E, rng Range, now time.Time) []E {
	var out []E
	for _, ev := range events {
		if rng.End.Before(ev.StartedAt()) {
			continue
		}
		if EndOrNow(ev, now).Before(rng.Start) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
