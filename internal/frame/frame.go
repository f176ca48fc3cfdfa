// Package frame describes the isolated content documents a rendering surface
// shows, one per visible section, and the raw input they receive.
package frame

import (
	"slices"
	"sync"
)

// Rect is a rectangle in viewport coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x < r.Left+r.Width &&
		y >= r.Top && y < r.Top+r.Height
}

// PointerKind is the kind of pointer event delivered to a document.
type PointerKind uint8

const (
	// PointerDown is a button press (mousedown).
	PointerDown PointerKind = iota
	// PointerClick is a completed click, delivered on release.
	PointerClick
)

// String returns a string representation of the pointer kind.
func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerClick:
		return "click"
	default:
		return "unknown"
	}
}

// PointerEvent is a pointer event in frame-local coordinates.
type PointerEvent struct {
	Kind   PointerKind
	X      float64
	Y      float64
	Target string // tag name of the element under the pointer
}

// KeyEvent is a key press delivered to a document.
type KeyEvent struct {
	Key string
}

// Document is a content document hosted in its own frame. Listeners
// registered on it run on whatever goroutine dispatches the input.
type Document interface {
	ID() string
	FrameRect() Rect
	OnPointer(kind PointerKind, fn func(PointerEvent))
	OnKey(fn func(KeyEvent))
}

// Doc is a Document that keeps its listeners in memory and lets the owner
// dispatch input to them.
type Doc struct {
	id string

	mu      sync.RWMutex
	rect    Rect
	pointer map[PointerKind][]func(PointerEvent)
	keys    []func(KeyEvent)
}

// NewDoc creates a document with the given identity.
func NewDoc(id string, rect Rect) *Doc {
	return &Doc{
		id:      id,
		rect:    rect,
		pointer: make(map[PointerKind][]func(PointerEvent)),
	}
}

func (d *Doc) ID() string { return d.id }

// FrameRect returns the hosting frame's bounding rectangle.
func (d *Doc) FrameRect() Rect {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rect
}

// SetFrameRect moves or resizes the hosting frame.
func (d *Doc) SetFrameRect(r Rect) {
	d.mu.Lock()
	d.rect = r
	d.mu.Unlock()
}

func (d *Doc) OnPointer(kind PointerKind, fn func(PointerEvent)) {
	d.mu.Lock()
	d.pointer[kind] = append(d.pointer[kind], fn)
	d.mu.Unlock()
}

func (d *Doc) OnKey(fn func(KeyEvent)) {
	d.mu.Lock()
	d.keys = append(d.keys, fn)
	d.mu.Unlock()
}

// DispatchPointer delivers ev to every listener registered for its kind.
func (d *Doc) DispatchPointer(ev PointerEvent) {
	d.mu.RLock()
	fns := slices.Clone(d.pointer[ev.Kind])
	d.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// DispatchKey delivers ev to every key listener.
func (d *Doc) DispatchKey(ev KeyEvent) {
	d.mu.RLock()
	fns := slices.Clone(d.keys)
	d.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
