package timeline

import "errors"

var (
	// ErrInvalidRange is returned when a range does not satisfy start < end
	// (or spans less than a whole minute where minutes are divided by).
	ErrInvalidRange = errors.New("invalid time range")

	// ErrUnsupportedZoomLevel is returned when a value outside the seven zoom
	// levels reaches a lookup table.
	ErrUnsupportedZoomLevel = errors.New("unsupported zoom level")
)
