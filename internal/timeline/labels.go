package timeline

import "time"

const (
	clockLayout = "15:04"
	dateLayout  = "Jan 2"
)

// Column is one boundary on the time axis. Label is empty for columns that
// are not labeled. Position is the column's offset as a percentage of the
// visible range.
type Column struct {
	Index    int
	Time     time.Time
	Label    string
	Position float64
	IsLast   bool
}

// Labeled reports whether the column carries a label.
func (c Column) Labeled() bool {
	return c.Label != ""
}

// LabelTarget returns how many labels a zoom level aims to show across the
// axis.
func LabelTarget(z ZoomLevel) (int, error) {
	switch z {
	case Minute, FiveMinutes, QuarterHour, Hour:
		return 12, nil
	case Day, Week:
		return 7, nil
	case Month:
		return 6, nil
	}
	return 0, ErrUnsupportedZoomLevel
}

// LabelInterval returns the spacing between labeled columns. It is never
// less than one.
func LabelInterval(columnCount int, z ZoomLevel) (int, error) {
	target, err := LabelTarget(z)
	if err != nil {
		return 0, err
	}
	interval := columnCount / target
	if interval < 1 {
		interval = 1
	}
	return interval, nil
}

// LabelColumns annotates column boundaries with labels and positions.
//
// Every labelInterval-th column is labeled, plus the last one. The last
// column is always returned; renderers that find its label redundant skip
// it using Column.IsLast.
func LabelColumns(ticks []time.Time, zoom ZoomLevel) ([]Column, error) {
	interval, err := LabelInterval(len(ticks), zoom)
	if err != nil {
		return nil, err
	}

	last := len(ticks) - 1
	columns := make([]Column, len(ticks))
	for i, t := range ticks {
		col := Column{
			Index:    i,
			Time:     t,
			Position: position(i, len(ticks)),
			IsLast:   i == last,
		}
		if i%interval == 0 || i == last {
			col.Label = FormatLabel(t, zoom)
		}
		columns[i] = col
	}
	return columns, nil
}

// Intervals computes and labels the columns for a range in one step.
func Intervals(start, end time.Time, zoom ZoomLevel) ([]Column, error) {
	ticks, err := ComputeColumns(start, end, zoom)
	if err != nil {
		return nil, err
	}
	return LabelColumns(ticks, zoom)
}

// FormatLabel formats a column instant for its zoom level. Sub-day levels
// show the clock time, except that the start of a day shows its date.
func FormatLabel(t time.Time, zoom ZoomLevel) string {
	if zoom.minuteTicks() && !IsDayStart(t) {
		return t.Format(clockLayout)
	}
	return t.Format(dateLayout)
}

func position(index, count int) float64 {
	if count <= 1 {
		return 0
	}
	return float64(index) / float64(count-1) * 100
}
