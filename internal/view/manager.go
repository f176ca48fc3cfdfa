// Package view is the reader's navigation facade. A Manager owns the
// rendering surface, wires its content documents to the click relay, turns
// relayed input into page turns and republishes surface events to the UI.
package view

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/metcalfc/leaf/internal/frame"
	"github.com/metcalfc/leaf/internal/gesture"
	"github.com/metcalfc/leaf/internal/logging"
	"github.com/metcalfc/leaf/internal/relay"
	"github.com/metcalfc/leaf/internal/surface"
	"github.com/metcalfc/leaf/internal/toc"
)

// DefaultLoadDelay is how long LoadBook waits before fetching.
const DefaultLoadDelay = 100 * time.Millisecond

// EventType tags events on the manager's stream.
type EventType string

const (
	EventLoad     EventType = "load"
	EventRelocate EventType = "relocate"
	EventError    EventType = "error"
	// EventMiddleTap is a resolved single tap in the middle zone.
	EventMiddleTap EventType = "middle-single-tap"
)

// Event is one entry on the stream returned by Subscribe.
type Event struct {
	Type       EventType
	DocumentID string
	Location   *surface.Location
	Err        error
}

// Metadata is a flat view of the book's metadata for display.
type Metadata map[string]string

// Options configures a Manager.
type Options struct {
	LoadDelay   time.Duration
	Client      *http.Client
	Clock       func() time.Time
	RelayBuffer int
}

// DefaultOptions returns the options used in production.
func DefaultOptions() Options {
	return Options{
		LoadDelay: DefaultLoadDelay,
		Client:    &http.Client{Timeout: 30 * time.Second},
		Clock:     time.Now,
	}
}

// Manager is the navigation facade over a rendering surface.
type Manager struct {
	log   zerolog.Logger
	opts  Options
	relay *relay.Relay

	// gestures is only touched from the Run goroutine.
	gestures *gesture.Disambiguator

	mu        sync.Mutex
	surface   surface.Surface
	forwarded chan struct{}
	bounds    frame.Rect
	sidebar   *toc.Sidebar
	location  *surface.Location

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a manager with no surface.
func New(ctx context.Context, opts Options) *Manager {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	m := &Manager{
		log:      logging.Component(ctx, "view"),
		opts:     opts,
		relay:    relay.New(ctx, opts.RelayBuffer),
		gestures: gesture.NewDisambiguator(),
		sidebar:  toc.NewSidebar(),
		subs:     make(map[int]chan Event),
	}
	m.registerHandlers()
	return m
}

// Relay exposes the manager's relay, mostly for front-ends that host their
// own content documents.
func (m *Manager) Relay() *relay.Relay { return m.relay }

func (m *Manager) current() surface.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface
}

// CreateView installs s, replacing any previous surface, and starts
// forwarding its events.
func (m *Manager) CreateView(s surface.Surface) {
	m.closeSurface()

	done := make(chan struct{})
	m.mu.Lock()
	m.surface = s
	m.forwarded = done
	if m.bounds.Width > 0 {
		s.SetBounds(m.bounds)
	}
	m.mu.Unlock()

	go m.forward(s, done)
	m.log.Debug().Msg("view created")
}

// forward republishes surface events until the surface closes its channel.
func (m *Manager) forward(s surface.Surface, done chan struct{}) {
	defer close(done)
	for ev := range s.Events() {
		switch ev.Type {
		case surface.EventLoad:
			if ev.Document == nil {
				continue
			}
			m.relay.Instrument(ev.Document)
			m.publish(Event{Type: EventLoad, DocumentID: ev.Document.ID()})
		case surface.EventRelocate:
			if ev.Location == nil {
				continue
			}
			loc := *ev.Location
			m.mu.Lock()
			m.location = &loc
			m.sidebar.SetActive(loc.TOCHref)
			m.mu.Unlock()
			m.publish(Event{Type: EventRelocate, Location: &loc})
		case surface.EventError:
			m.log.Warn().Err(ev.Err).Msg("surface error")
			m.publish(Event{Type: EventError, Err: ev.Err})
		}
	}
}

// Destroy closes the surface and every subscriber.
func (m *Manager) Destroy() {
	if !m.closeSurface() {
		return
	}

	m.subsMu.Lock()
	for id, ch := range m.subs {
		close(ch)
		delete(m.subs, id)
	}
	m.subsMu.Unlock()
	m.log.Debug().Msg("view destroyed")
}

// closeSurface closes and forgets the current surface once its events are
// drained. It reports whether there was one.
func (m *Manager) closeSurface() bool {
	m.mu.Lock()
	s, done := m.surface, m.forwarded
	m.surface, m.forwarded = nil, nil
	m.mu.Unlock()

	if s == nil {
		return false
	}
	if err := s.Close(); err != nil {
		m.log.Warn().Err(err).Msg("failed to close surface")
	}
	<-done
	m.relay.Reset()
	return true
}

// Subscribe returns a stream of events and a function that ends the
// subscription. Events are dropped for a subscriber that falls behind.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			if c, ok := m.subs[id]; ok {
				close(c)
				delete(m.subs, id)
			}
			m.subsMu.Unlock()
		})
	}
}

func (m *Manager) publish(ev Event) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.log.Debug().Int("subscriber", id).Str("type", string(ev.Type)).Msg("subscriber behind, dropping event")
		}
	}
}

// GoTo navigates to target; nil means the first section. Without a surface
// it does nothing.
func (m *Manager) GoTo(ctx context.Context, target surface.Target) error {
	s := m.current()
	if s == nil {
		return nil
	}
	if target == nil {
		target = surface.SectionIndex(0)
	}
	return s.GoTo(ctx, target)
}

// GoToSection navigates to a section by spine index.
func (m *Manager) GoToSection(ctx context.Context, index int) error {
	return m.GoTo(ctx, surface.SectionIndex(index))
}

// GoToFraction navigates to a fraction of the whole book.
func (m *Manager) GoToFraction(ctx context.Context, fraction float64) error {
	s := m.current()
	if s == nil {
		return nil
	}
	return s.GoToFraction(ctx, fraction)
}

func (m *Manager) Prev() {
	if s := m.current(); s != nil {
		s.Prev()
	}
}

func (m *Manager) Next() {
	if s := m.current(); s != nil {
		s.Next()
	}
}

// Chapters maps the open book's table of contents.
func (m *Manager) Chapters() []toc.Node {
	s := m.current()
	if s == nil || s.Book() == nil {
		return nil
	}
	return toc.Map(s.Book().TOC)
}

func (m *Manager) SectionFractions() []float64 {
	s := m.current()
	if s == nil {
		return nil
	}
	return s.SectionFractions()
}

// Location is the last reported reading position, or nil.
func (m *Manager) Location() *surface.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.location == nil {
		return nil
	}
	loc := *m.location
	return &loc
}

// Renderer gives front-ends access to the page on screen.
func (m *Manager) Renderer() surface.Renderer {
	s := m.current()
	if s == nil {
		return nil
	}
	return s.Renderer()
}

// Metadata flattens the book's metadata. The cover, when present, is a
// data: URL; extra fields are applied last and win over the named ones.
// It returns nil when no book is open.
func (m *Manager) Metadata(ctx context.Context) Metadata {
	s := m.current()
	if s == nil || s.Book() == nil {
		return nil
	}
	md := s.Book().Metadata
	out := Metadata{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("title", md.Title)
	set("authors", strings.Join(md.Authors, ", "))
	set("language", md.Language)
	set("publisher", md.Publisher)
	set("description", md.Description)
	set("identifier", md.Identifier)
	if u, err := m.CoverURL(ctx); err == nil {
		out["cover"] = u
	}
	for k, v := range md.Extra {
		out[k] = v
	}
	return out
}

// Cover returns the cover image and its media type.
func (m *Manager) Cover(ctx context.Context) ([]byte, string, error) {
	s := m.current()
	if s == nil {
		return nil, "", ErrViewNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return s.Book().Cover()
}

// CoverURL returns the cover as a data: URL.
func (m *Manager) CoverURL(ctx context.Context) (string, error) {
	data, mt, err := m.Cover(ctx)
	if err != nil {
		return "", err
	}
	return dataURL(data, mt), nil
}

func dataURL(data []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SetBounds records the view rectangle used to classify clicks.
func (m *Manager) SetBounds(r frame.Rect) {
	m.mu.Lock()
	m.bounds = r
	s := m.surface
	m.mu.Unlock()
	if s != nil {
		s.SetBounds(r)
	}
}

func (m *Manager) viewBounds() frame.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

// Pointer injects a viewport-coordinate pointer event into the surface.
func (m *Manager) Pointer(kind frame.PointerKind, x, y float64) {
	if s := m.current(); s != nil {
		s.Pointer(kind, x, y)
	}
}

// Key delivers a key press to the visible content document. The press comes
// back through the relay and turns the page once Run is draining it.
func (m *Manager) Key(key string) {
	if s := m.current(); s != nil {
		s.Key(key)
	}
}

// HandleKey applies a host-level key press. Keyboard turns are not subject
// to the tap navigation guard. It reports whether the key was bound.
func (m *Manager) HandleKey(key string) bool {
	intent, ok := gesture.KeyIntent(key)
	if !ok {
		return false
	}
	m.turn(intent)
	return true
}

func (m *Manager) turn(intent gesture.Intent) {
	switch intent {
	case gesture.IntentPrev:
		m.Prev()
	case gesture.IntentNext:
		m.Next()
	}
}

// ToggleChapter flips a sidebar entry's expansion.
func (m *Manager) ToggleChapter(href string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sidebar.Toggle(href)
}

// SidebarRows returns the visible sidebar rows.
func (m *Manager) SidebarRows() []toc.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sidebar.Rows()
}

// ExpandedChapters returns the hrefs of expanded sidebar entries.
func (m *Manager) ExpandedChapters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sidebar.Expanded().Hrefs()
}
