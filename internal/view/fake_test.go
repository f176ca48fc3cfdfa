package view

import (
	"context"
	"sync"
	"time"

	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/surface"
)

// fakeSurface records what the manager asks of it.
type fakeSurface struct {
	mu        sync.Mutex
	events    chan surface.Event
	book      *surface.Book
	openErr   error
	opened    []surface.File
	targets   []surface.Target
	fractions []float64
	prev      int
	next      int
	keys      []string
	bounds    frame.Rect
	closed    bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{events: make(chan surface.Event, 64)}
}

func (f *fakeSurface) Open(_ context.Context, file surface.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, file)
	if f.openErr != nil {
		return f.openErr
	}
	if f.book == nil {
		f.book = surface.NewBook(nil, surface.Metadata{Title: file.Name}, nil)
	}
	return nil
}

func (f *fakeSurface) Prev() {
	f.mu.Lock()
	f.prev++
	f.mu.Unlock()
}

func (f *fakeSurface) Next() {
	f.mu.Lock()
	f.next++
	f.mu.Unlock()
}

func (f *fakeSurface) GoTo(_ context.Context, t surface.Target) error {
	f.mu.Lock()
	f.targets = append(f.targets, t)
	f.mu.Unlock()
	return nil
}

func (f *fakeSurface) GoToFraction(_ context.Context, v float64) error {
	f.mu.Lock()
	f.fractions = append(f.fractions, v)
	f.mu.Unlock()
	return nil
}

func (f *fakeSurface) Book() *surface.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.book
}

func (f *fakeSurface) SectionFractions() []float64 { return []float64{0, 0.5, 1} }
func (f *fakeSurface) Renderer() surface.Renderer  { return nil }
func (f *fakeSurface) Events() <-chan surface.Event { return f.events }

func (f *fakeSurface) SetBounds(r frame.Rect) {
	f.mu.Lock()
	f.bounds = r
	f.mu.Unlock()
}

func (f *fakeSurface) Pointer(frame.PointerKind, float64, float64) {}

func (f *fakeSurface) Key(key string) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
}

func (f *fakeSurface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeSurface) turns() (prev, next int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prev, f.next
}

// fakeClock is a settable clock for driving the disambiguator.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
