package gesture

import (
	"time"

	"github.com/metcalfc/leaf/internal/frame"
)

const (
	// DoubleClickWindow is how long after a click a same-zone click counts
	// as the second half of a double click.
	DoubleClickWindow = 300 * time.Millisecond
	// LongHoldThreshold is how long a press must last before the click that
	// ends it is treated as a selection or drag.
	LongHoldThreshold = 500 * time.Millisecond
	// NavigationGuard is how long after a page turn further turns are dropped.
	NavigationGuard = 300 * time.Millisecond
)

// ClickEvent is one click relayed from a content frame, in viewport
// coordinates.
type ClickEvent struct {
	ClientX    float64
	ClientY    float64
	FrameLeft  float64
	FrameWidth float64
	Target     string
}

// Outcome is what Click decided about a single click.
type Outcome uint8

const (
	// OutcomeSuppressed means the click completed a double click and will
	// never produce an intent.
	OutcomeSuppressed Outcome = iota
	// OutcomePending means the click is waiting out the double click window.
	OutcomePending
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	if o == OutcomeSuppressed {
		return "suppressed"
	}
	return "pending"
}

// GestureState is a snapshot of the disambiguator's state.
type GestureState struct {
	LastClick          time.Time
	LastZone           Zone
	LongHoldActive     bool
	NavigationInFlight bool
	Pending            int
}

type pendingTap struct {
	zone     Zone
	due      time.Time
	longHold bool
}

// Disambiguator classifies a stream of presses and clicks into intents.
//
// It never reads the clock itself: every transition takes the host time as
// an argument, and the owner calls Advance at or after Deadline to resolve
// single taps. A Disambiguator is not safe for concurrent use; it belongs
// to the single goroutine that owns the view.
type Disambiguator struct {
	lastClick time.Time
	lastZone  Zone

	pressed  bool
	pressAt  time.Time
	longHold bool

	navUntil time.Time
	pending  []pendingTap
}

// NewDisambiguator creates a disambiguator with no click history.
func NewDisambiguator() *Disambiguator {
	return &Disambiguator{}
}

// Press records a button press inside content, arming the long-hold timer.
func (d *Disambiguator) Press(now time.Time) {
	d.pressed = true
	d.pressAt = now
	d.longHold = false
}

// Click records a completed click. view is the reading surface rectangle
// used to turn the viewport x coordinate into a zone.
func (d *Disambiguator) Click(ev ClickEvent, view frame.Rect, now time.Time) Outcome {
	zone := Classify(ev.ClientX-view.Left, view.Width)

	held := d.longHold
	if d.pressed && now.Sub(d.pressAt) >= LongHoldThreshold {
		held = true
	}
	d.pressed = false

	if d.isRepeat(zone, now) {
		d.lastClick = now
		d.lastZone = zone
		d.longHold = false
		d.dropLatest(zone)
		return OutcomeSuppressed
	}

	d.lastClick = now
	d.lastZone = zone
	d.longHold = held
	d.pending = append(d.pending, pendingTap{
		zone:     zone,
		due:      now.Add(DoubleClickWindow),
		longHold: held,
	})
	return OutcomePending
}

// isRepeat reports whether a click in zone at now is the second half of a
// double click. Negative elapsed time starts a new sequence.
func (d *Disambiguator) isRepeat(zone Zone, now time.Time) bool {
	if d.lastClick.IsZero() || d.lastZone != zone {
		return false
	}
	elapsed := now.Sub(d.lastClick)
	return elapsed >= 0 && elapsed < DoubleClickWindow
}

// dropLatest cancels the most recent pending tap if it is in zone.
func (d *Disambiguator) dropLatest(zone Zone) {
	n := len(d.pending)
	if n > 0 && d.pending[n-1].zone == zone {
		d.pending = d.pending[:n-1]
	}
}

// Advance resolves every pending tap whose window has closed by now and
// returns the resulting intents in click order.
func (d *Disambiguator) Advance(now time.Time) []Intent {
	if d.pressed && !d.longHold && now.Sub(d.pressAt) >= LongHoldThreshold {
		d.longHold = true
	}

	var intents []Intent
	keep := d.pending[:0]
	for _, p := range d.pending {
		if now.Before(p.due) {
			keep = append(keep, p)
			continue
		}
		if in := d.resolve(p, now); in != IntentNone {
			intents = append(intents, in)
		}
	}
	d.pending = keep
	return intents
}

func (d *Disambiguator) resolve(p pendingTap, now time.Time) Intent {
	if p.longHold {
		d.longHold = false
		return IntentNone
	}
	if now.Before(d.navUntil) {
		return IntentNone
	}

	switch p.zone {
	case ZoneLeft:
		d.navUntil = now.Add(NavigationGuard)
		return IntentPrev
	case ZoneRight:
		d.navUntil = now.Add(NavigationGuard)
		return IntentNext
	default:
		return IntentToggleMenu
	}
}

// Deadline returns the next time Advance has work to do.
func (d *Disambiguator) Deadline() (time.Time, bool) {
	var next time.Time
	if d.pressed && !d.longHold {
		next = d.pressAt.Add(LongHoldThreshold)
	}
	for _, p := range d.pending {
		if next.IsZero() || p.due.Before(next) {
			next = p.due
		}
	}
	return next, !next.IsZero()
}

// State returns a snapshot of the state as of now.
func (d *Disambiguator) State(now time.Time) GestureState {
	return GestureState{
		LastClick:          d.lastClick,
		LastZone:           d.lastZone,
		LongHoldActive:     d.longHold || (d.pressed && now.Sub(d.pressAt) >= LongHoldThreshold),
		NavigationInFlight: now.Before(d.navUntil),
		Pending:            len(d.pending),
	}
}
