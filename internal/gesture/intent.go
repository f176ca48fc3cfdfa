package gesture

// Intent is the action a resolved gesture or key press asks for.
type Intent uint8

const (
	IntentNone Intent = iota
	IntentPrev
	IntentNext
	IntentToggleMenu
)

// String returns a string representation of the intent.
func (i Intent) String() string {
	switch i {
	case IntentPrev:
		return "prev"
	case IntentNext:
		return "next"
	case IntentToggleMenu:
		return "toggle-menu"
	default:
		return "none"
	}
}

// Key names understood by KeyIntent. Front-ends translate their native key
// names to these before handing them over.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyPageUp     = "PageUp"
	KeyPageDown   = "PageDown"
)

// KeyIntent maps a key name to a page turn. Arrow keys, vi-style h/l and
// PageUp/PageDown are recognised; everything else reports false.
func KeyIntent(key string) (Intent, bool) {
	switch key {
	case KeyArrowLeft, "h", KeyPageUp:
		return IntentPrev, true
	case KeyArrowRight, "l", KeyPageDown:
		return IntentNext, true
	}
	return IntentNone, false
}
