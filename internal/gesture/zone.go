// Package gesture turns raw pointer timing on the reading surface into
// navigation intents: previous page, next page, or toggling the UI chrome.
package gesture

// Zone is one of the three horizontal regions of the reading surface.
type Zone uint8

const (
	// ZoneNone means no click has been recorded yet.
	ZoneNone Zone = iota
	// ZoneLeft is the leftmost 30% of the surface.
	ZoneLeft
	// ZoneMiddle is everything between the two thresholds, inclusive.
	ZoneMiddle
	// ZoneRight is the rightmost 30% of the surface.
	ZoneRight
)

const (
	leftZoneFraction  = 0.3
	rightZoneFraction = 0.7
)

// String returns a string representation of the zone.
func (z Zone) String() string {
	switch z {
	case ZoneLeft:
		return "left"
	case ZoneMiddle:
		return "middle"
	case ZoneRight:
		return "right"
	default:
		return "none"
	}
}

// Classify maps a view-local x coordinate to a zone. A non-positive width
// is treated as a middle tap.
func Classify(x, width float64) Zone {
	if width <= 0 {
		return ZoneMiddle
	}
	switch {
	case x < width*leftZoneFraction:
		return ZoneLeft
	case x > width*rightZoneFraction:
		return ZoneRight
	default:
		return ZoneMiddle
	}
}
